package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLaunchError(t *testing.T) {
	cause := errors.New("executable file not found in $PATH")
	err := fmt.Errorf("run: %w", &LaunchError{Path: "/opt/git", Err: cause})

	assert.ErrorIs(t, err, ErrLaunchFailure)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNonZeroExit)
	assert.Contains(t, err.Error(), "/opt/git")
}

func TestExitError(t *testing.T) {
	tests := []struct {
		name   string
		err    *ExitError
		expect string
	}{
		{
			name:   "with stderr",
			err:    &ExitError{Command: "config", Code: 5, Stderr: "error: could not lock config file\n"},
			expect: "git config exited with code 5: error: could not lock config file",
		},
		{
			name:   "blank stderr",
			err:    &ExitError{Command: "log", Code: 128, Stderr: " \n"},
			expect: "git log exited with code 128",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.err.Error())
			assert.ErrorIs(t, tt.err, ErrNonZeroExit)
			assert.NotErrorIs(t, tt.err, ErrParse)
		})
	}
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name   string
		err    *ParseError
		expect string
	}{
		{
			name:   "whole output",
			err:    NewParseError("config --list --null", -1, "output is not NUL-terminated"),
			expect: "unexpected git output: config --list --null: output is not NUL-terminated",
		},
		{
			name:   "single record",
			err:    NewParseError("for-each-ref", 3, "expected 3 fields, got 2"),
			expect: "unexpected git output: for-each-ref record 3: expected 3 fields, got 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.err.Error())
			assert.ErrorIs(t, fmt.Errorf("wrapped: %w", tt.err), ErrParse)

			var pe *ParseError
			assert.ErrorAs(t, fmt.Errorf("wrapped: %w", tt.err), &pe)
			assert.Equal(t, tt.err.Record, pe.Record)
		})
	}
}

func TestUserData_Key(t *testing.T) {
	assert.Equal(t, "Ann <ann@example.com>", UserData{Name: "Ann", Email: "ann@example.com"}.Key())
}

func TestReferenceData_IsAnnotated(t *testing.T) {
	h := "1111111111111111111111111111111111111111"
	o := "2222222222222222222222222222222222222222"

	assert.False(t, ReferenceData{Hash: h, ObjectHash: h}.IsAnnotated())
	assert.False(t, ReferenceData{Hash: h}.IsAnnotated())
	assert.True(t, ReferenceData{Hash: h, ObjectHash: o}.IsAnnotated())
}
