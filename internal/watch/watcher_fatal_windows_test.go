// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestIsFatalFsnotifyError(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err   error
		fatal bool
	}{
		"too many open files":     {errnoTooManyOpenFiles, true},
		"watched directory gone":  {errnoInvalidHandle, true},
		"out of memory":           {errnoNotEnoughMemory, true},
		"wrapped invalid handle":  {fmt.Errorf("read changes: %w", errnoInvalidHandle), true},
		"joined with other error": {errors.Join(errors.New("buffer overflow"), errnoTooManyOpenFiles), true},
		"access denied":           {syscall.Errno(5), false},
		"file not found":          {syscall.Errno(2), false},
		"plain error":             {errors.New("event dropped"), false},
		"nil":                     {nil, false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := isFatalFsnotifyError(tc.err); got != tc.fatal {
				t.Errorf("isFatalFsnotifyError(%v) = %v, want %v", tc.err, got, tc.fatal)
			}
		})
	}
}
