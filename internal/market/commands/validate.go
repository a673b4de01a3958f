package commands

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/openstall/marketfeed/internal/common"
)

// Validation limits shared by every command payload.
const (
	maxNameLen        = 50
	maxDescriptionLen = 200
	currencyLen       = 3
)

func validateVendor(info VendorInfo) error {
	// A blanked profile (RemoveVendor) bypasses validation, so only
	// non-empty vendors land here.
	if info.Name == "" || len(info.Name) > maxNameLen {
		return fmt.Errorf("%w: vendor name must be 1-%d characters", common.ErrorValidation, maxNameLen)
	}
	if len(info.About) > maxDescriptionLen {
		return fmt.Errorf("%w: vendor about must be at most %d characters", common.ErrorValidation, maxDescriptionLen)
	}
	if info.Picture != "" {
		if u, err := url.Parse(info.Picture); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: vendor picture must be a URL", common.ErrorValidation)
		}
	}
	return nil
}

func validateSection(info SectionInfo) error {
	if _, err := uuid.Parse(info.ID); err != nil {
		return fmt.Errorf("%w: section id must be a UUID", common.ErrorValidation)
	}
	if info.Name == "" || len(info.Name) > maxNameLen {
		return fmt.Errorf("%w: section name must be 1-%d characters", common.ErrorValidation, maxNameLen)
	}
	if len(info.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: section description must be at most %d characters", common.ErrorValidation, maxDescriptionLen)
	}
	if len(info.Currency) != currencyLen {
		return fmt.Errorf("%w: currency must be a %d-letter code", common.ErrorValidation, currencyLen)
	}
	return nil
}

func validateItem(info ItemInfo) error {
	if _, err := uuid.Parse(info.ID); err != nil {
		return fmt.Errorf("%w: item id must be a UUID", common.ErrorValidation)
	}
	if info.SectionID == "" {
		return fmt.Errorf("%w: item must reference a section", common.ErrorValidation)
	}
	if info.Name == "" || len(info.Name) > maxNameLen {
		return fmt.Errorf("%w: item name must be 1-%d characters", common.ErrorValidation, maxNameLen)
	}
	if len(info.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: item description must be at most %d characters", common.ErrorValidation, maxDescriptionLen)
	}
	if info.Price < 0 {
		return fmt.Errorf("%w: item price must not be negative", common.ErrorValidation)
	}
	if len(info.Currency) != currencyLen {
		return fmt.Errorf("%w: currency must be a %d-letter code", common.ErrorValidation, currencyLen)
	}
	return nil
}
