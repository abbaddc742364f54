// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Profile field limits.
const (
	MinNameLength      = 2
	MaxNameLength      = 30
	MinSurnameLength   = 4
	MaxSurnameLength   = 40
	MinAge             = 3
	MaxBiographyLength = 300
	MaxAvatarURLLength = 255
)

// Profile kind sentinels.
var (
	ErrProfile           = fmt.Errorf("invalid profile: %w", ErrValidation)
	ErrName              = fmt.Errorf("invalid name: %w", ErrProfile)
	ErrDateOfBirthFuture = fmt.Errorf("date of birth in the future: %w", ErrProfile)
	ErrDateOfBirthMinAge = fmt.Errorf("below minimum age: %w", ErrProfile)
)

var namePattern = regexp.MustCompile(`^[A-Za-z-]+$`)

// PersonName validates a first name or surname and returns it title-cased.
// An empty input yields a nil result: the field is optional.
func PersonName(field, s string, minLen, maxLen int) (*string, error) {
	if s == "" {
		return nil, nil
	}

	for _, r := range s {
		if unicode.IsSpace(r) {
			return nil, fail("VALIDATION_NAME_WHITESPACE", field, ErrName,
				fmt.Sprintf("%s must not contain whitespace", field))
		}
	}
	if !namePattern.MatchString(s) {
		return nil, fail("VALIDATION_NAME_CHARSET", field, ErrName,
			fmt.Sprintf("%s may contain only letters A-Z and hyphens", field))
	}

	n := utf8.RuneCountInString(s)
	if n < minLen || n > maxLen {
		return nil, fail("VALIDATION_NAME_LENGTH", field, ErrName,
			fmt.Sprintf("%s must be between %d and %d characters", field, minLen, maxLen))
	}

	titled := titleCase(s)
	return &titled, nil
}

// titleCase upper-cases the first letter of every hyphen-separated part and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := true
	for _, r := range s {
		if !unicode.IsLetter(r) {
			start = true
			b.WriteRune(r)
			continue
		}
		if start {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		start = false
	}
	return b.String()
}

// Age returns the completed years between dob and today, counting the
// current year only once the birthday has been reached.
func Age(dob, today time.Time) int {
	years := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		years--
	}
	return years
}

// DateOfBirth rejects dates after today and dates implying an age below
// minAge. Only the calendar date of each argument is considered.
func DateOfBirth(dob, today time.Time, minAge int) error {
	d := dateOf(dob)
	t := dateOf(today)
	if d.After(t) {
		return fail("VALIDATION_DOB_FUTURE", "date_of_birth", ErrDateOfBirthFuture,
			"date of birth cannot be in the future")
	}
	if Age(d, t) < minAge {
		return fail("VALIDATION_DOB_MIN_AGE", "date_of_birth", ErrDateOfBirthMinAge,
			fmt.Sprintf("age must be at least %d years", minAge))
	}
	return nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Biography checks the biography length.
func Biography(s string) error {
	if utf8.RuneCountInString(s) > MaxBiographyLength {
		return fail("VALIDATION_BIOGRAPHY_TOO_LONG", "biography", ErrProfile,
			fmt.Sprintf("biography must be at most %d characters", MaxBiographyLength))
	}
	return nil
}

// AvatarURL requires an absolute http or https URL within length.
func AvatarURL(s string) error {
	if len(s) > MaxAvatarURLLength {
		return fail("VALIDATION_AVATAR_TOO_LONG", "avatar_url", ErrProfile,
			fmt.Sprintf("avatar url must be at most %d characters", MaxAvatarURLLength))
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fail("VALIDATION_AVATAR_URL", "avatar_url", ErrProfile,
			"avatar url must be an absolute http or https url")
	}
	return nil
}

// MaxLength checks that s has at most limit characters.
func MaxLength(field, s string, limit int) error {
	if utf8.RuneCountInString(s) > limit {
		return fail("VALIDATION_TOO_LONG", field, ErrValidation,
			fmt.Sprintf("%s must be at most %d characters", field, limit))
	}
	return nil
}

// Required checks that s is not blank.
func Required(field, s string) error {
	if strings.TrimSpace(s) == "" {
		return fail("VALIDATION_REQUIRED", field, ErrValidation,
			fmt.Sprintf("%s is required", field))
	}
	return nil
}
