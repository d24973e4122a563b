package availability

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Reasons reported by IsAvailable and CheckAvailability.
const (
	ReasonClosed       = "closed"
	ReasonHoliday      = "holiday"
	ReasonOutsideHours = "outside_hours"
	ReasonFullyBooked  = "fully_booked"
)

// weekdayKeys are the JSON keys of Settings.WorkingHours indexed by time.Weekday.
var weekdayKeys = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// DayHours configures one weekday.
type DayHours struct {
	IsOpen    bool   `json:"isOpen"`
	OpenTime  string `json:"openTime"`
	CloseTime string `json:"closeTime"`
	Slots     int    `json:"slots"`
}

// Settings is a dealer's test-ride configuration. Weekdays missing from
// WorkingHours are closed.
type Settings struct {
	WorkingHours map[string]DayHours `json:"workingHours"`
	Holidays     []string            `json:"holidays"`
	SlotDuration int                 `json:"slotDuration"`
}

// Limits bounds the configurable slot duration in minutes.
type Limits struct {
	MinSlotDuration int
	MaxSlotDuration int
}

// DefaultLimits matches the configuration defaults.
var DefaultLimits = Limits{MinSlotDuration: 15, MaxSlotDuration: 120}

// Availability answers whether a dealer takes test rides on a date.
type Availability struct {
	Date      string `json:"date"`
	Time      string `json:"time,omitempty"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Capacity  int    `json:"capacity"`
	Remaining int    `json:"remaining"`
}

// DefaultSettings opens Monday to Saturday 09:00-18:00 with 8 slots.
func DefaultSettings(slotDuration int) Settings {
	hours := make(map[string]DayHours, len(weekdayKeys))
	for i, key := range weekdayKeys {
		if time.Weekday(i) == time.Sunday {
			hours[key] = DayHours{IsOpen: false, OpenTime: "09:00", CloseTime: "18:00", Slots: 0}
			continue
		}
		hours[key] = DayHours{IsOpen: true, OpenTime: "09:00", CloseTime: "18:00", Slots: 8}
	}
	return Settings{WorkingHours: hours, Holidays: []string{}, SlotDuration: slotDuration}
}

// EffectiveSlots is zero for a closed day whatever Slots says.
func EffectiveSlots(day DayHours) int {
	if !day.IsOpen || day.Slots < 0 {
		return 0
	}
	return day.Slots
}

// Validate checks durations, clock strings and holiday dates.
func (s Settings) Validate(limits Limits) error {
	if s.SlotDuration < limits.MinSlotDuration || s.SlotDuration > limits.MaxSlotDuration {
		return fmt.Errorf("slotDuration must be between %d and %d minutes", limits.MinSlotDuration, limits.MaxSlotDuration)
	}
	known := make(map[string]bool, len(weekdayKeys))
	for _, key := range weekdayKeys {
		known[key] = true
	}
	for key, day := range s.WorkingHours {
		if !known[key] {
			return fmt.Errorf("unknown weekday %q", key)
		}
		if day.Slots < 0 {
			return fmt.Errorf("%s: slots cannot be negative", key)
		}
		if !day.IsOpen {
			continue
		}
		open, err := time.Parse(timeLayout, day.OpenTime)
		if err != nil {
			return fmt.Errorf("%s: openTime must be HH:MM", key)
		}
		closing, err := time.Parse(timeLayout, day.CloseTime)
		if err != nil {
			return fmt.Errorf("%s: closeTime must be HH:MM", key)
		}
		if !open.Before(closing) {
			return fmt.Errorf("%s: openTime must be before closeTime", key)
		}
	}
	for _, holiday := range s.Holidays {
		if _, err := time.Parse(dateLayout, holiday); err != nil {
			return fmt.Errorf("holiday %q must be yyyy-MM-dd", holiday)
		}
	}
	return nil
}

// Normalized returns a copy with holidays sorted and de-duplicated.
func (s Settings) Normalized() Settings {
	out := s
	out.WorkingHours = make(map[string]DayHours, len(s.WorkingHours))
	for k, v := range s.WorkingHours {
		out.WorkingHours[k] = v
	}
	out.Holidays = append([]string{}, s.Holidays...)
	sort.Strings(out.Holidays)
	out.Holidays = slices.Compact(out.Holidays)
	return out
}

// AddHoliday inserts date keeping the list ascending and free of duplicates.
// Adding an existing date is a no-op.
func (s Settings) AddHoliday(date string) Settings {
	holidays := make([]string, 0, len(s.Holidays)+1)
	holidays = append(holidays, s.Holidays...)
	holidays = append(holidays, date)
	sort.Strings(holidays)
	s.Holidays = slices.Compact(holidays)
	return s
}

// RemoveHoliday drops every entry equal to date.
func (s Settings) RemoveHoliday(date string) Settings {
	holidays := make([]string, 0, len(s.Holidays))
	for _, h := range s.Holidays {
		if h != date {
			holidays = append(holidays, h)
		}
	}
	s.Holidays = holidays
	return s
}

// Day returns the hours configured for date's weekday.
func (s Settings) Day(date time.Time) DayHours {
	return s.WorkingHours[weekdayKeys[date.Weekday()]]
}

// IsAvailable evaluates date (yyyy-MM-dd) and an optional HH:MM clock time
// against the weekly hours and holidays. Capacity is the day's effective
// slot count before bookings.
func (s Settings) IsAvailable(date, clock string) (Availability, error) {
	result := Availability{Date: date, Time: clock}
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return result, fmt.Errorf("date must be yyyy-MM-dd")
	}
	var at time.Time
	if clock != "" {
		if at, err = time.Parse(timeLayout, clock); err != nil {
			return result, fmt.Errorf("time must be HH:MM")
		}
	}

	hours := s.Day(day)
	if !hours.IsOpen {
		result.Reason = ReasonClosed
		return result, nil
	}
	for _, h := range s.Holidays {
		if h == date {
			result.Reason = ReasonHoliday
			return result, nil
		}
	}
	if clock != "" {
		open, errOpen := time.Parse(timeLayout, hours.OpenTime)
		closing, errClose := time.Parse(timeLayout, hours.CloseTime)
		if errOpen != nil || errClose != nil || at.Before(open) || !at.Before(closing) {
			result.Reason = ReasonOutsideHours
			return result, nil
		}
	}

	result.Capacity = EffectiveSlots(hours)
	result.Remaining = result.Capacity
	result.Available = result.Capacity > 0
	if !result.Available {
		result.Reason = ReasonFullyBooked
	}
	return result, nil
}
