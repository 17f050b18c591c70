package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTime(t *testing.T) {
	v := NewBookingValidator("@bitsathy.ac.in")

	valid := []struct {
		in   string
		want string
	}{
		{"00:00", "00:00"},
		{"09:00", "09:00"},
		{"12:30", "12:30"},
		{"23:59", "23:59"},
		{"9:30", "09:30"},
		{"0:05", "00:05"},
		{" 10:15 ", "10:15"},
	}
	for _, tc := range valid {
		t.Run("Valid "+tc.in, func(t *testing.T) {
			got, err := v.ValidateTime(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	invalid := []struct {
		in  string
		err error
	}{
		{"", ErrEmptyTime},
		{"   ", ErrEmptyTime},
		{"24:00", ErrInvalidTime},
		{"25:30", ErrInvalidTime},
		{"9:60", ErrInvalidTime},
		{"12:5", ErrInvalidTime},
		{"noon", ErrInvalidTime},
		{"12.30", ErrInvalidTime},
		{"12:30:00", ErrInvalidTime},
	}
	for _, tc := range invalid {
		t.Run("Invalid "+tc.in, func(t *testing.T) {
			_, err := v.ValidateTime(tc.in)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestIsValidTime(t *testing.T) {
	v := NewBookingValidator("@bitsathy.ac.in")
	assert.True(t, v.IsValidTime("08:45"))
	assert.False(t, v.IsValidTime("24:00"))
}

func TestValidateDate(t *testing.T) {
	v := NewBookingValidator("@bitsathy.ac.in")

	t.Run("Valid Date", func(t *testing.T) {
		day, err := v.ValidateDate("2026-09-02")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), day)
	})

	t.Run("Wrong Layout", func(t *testing.T) {
		_, err := v.ValidateDate("02-09-2026")
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("Impossible Day", func(t *testing.T) {
		_, err := v.ValidateDate("2026-02-30")
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := v.ValidateDate("")
		assert.ErrorIs(t, err, ErrEmptyDate)
	})
}

func TestValidateEmail(t *testing.T) {
	v := NewBookingValidator("@bitsathy.ac.in")

	t.Run("Campus Email Lowercased", func(t *testing.T) {
		email, err := v.ValidateEmail("Asha.K@BITSathy.ac.in")
		require.NoError(t, err)
		assert.Equal(t, "asha.k@bitsathy.ac.in", email)
	})

	t.Run("Outside Domain", func(t *testing.T) {
		_, err := v.ValidateEmail("asha@gmail.com")
		assert.ErrorIs(t, err, ErrWrongDomain)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := v.ValidateEmail("not-an-email")
		assert.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := v.ValidateEmail("  ")
		assert.ErrorIs(t, err, ErrEmptyEmail)
	})

	t.Run("No Domain Restriction", func(t *testing.T) {
		open := NewBookingValidator("")
		email, err := open.ValidateEmail("anyone@example.com")
		require.NoError(t, err)
		assert.Equal(t, "anyone@example.com", email)
	})
}

func TestValidateRegNumber(t *testing.T) {
	v := NewBookingValidator("@bitsathy.ac.in")

	t.Run("Valid", func(t *testing.T) {
		reg, err := v.ValidateRegNumber("7376211CS239")
		require.NoError(t, err)
		assert.Equal(t, "7376211CS239", reg)
	})

	t.Run("Lowercase Letters Uppercased", func(t *testing.T) {
		reg, err := v.ValidateRegNumber("7376211cs239")
		require.NoError(t, err)
		assert.Equal(t, "7376211CS239", reg)
	})

	for _, in := range []string{"", "7376211C239", "737621XCS239", "7376211CS23", "7376211CS2399"} {
		t.Run("Invalid "+in, func(t *testing.T) {
			_, err := v.ValidateRegNumber(in)
			assert.ErrorIs(t, err, ErrInvalidRegNumber)
		})
	}
}
