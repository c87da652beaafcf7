package enums

import "fmt"

// FlashSaleStatus tracks the administered lifecycle of a flash sale.
// A sale only overrides prices while running and inside its window.
type FlashSaleStatus string

const (
	FlashSaleStatusScheduled FlashSaleStatus = "scheduled"
	FlashSaleStatusRunning   FlashSaleStatus = "running"
	FlashSaleStatusExpired   FlashSaleStatus = "expired"
)

var validFlashSaleStatuses = []FlashSaleStatus{
	FlashSaleStatusScheduled,
	FlashSaleStatusRunning,
	FlashSaleStatusExpired,
}

// String implements fmt.Stringer.
func (f FlashSaleStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FlashSaleStatus.
func (f FlashSaleStatus) IsValid() bool {
	for _, candidate := range validFlashSaleStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFlashSaleStatus converts raw input into a FlashSaleStatus.
func ParseFlashSaleStatus(value string) (FlashSaleStatus, error) {
	for _, candidate := range validFlashSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid flash sale status %q", value)
}
