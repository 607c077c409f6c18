// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package ais

import "testing"

func TestNavigationStatusFromCode(t *testing.T) {
	tests := []struct {
		code int
		want NavigationStatus
	}{
		{0, StatusUnderWayEngine},
		{1, StatusAtAnchor},
		{2, StatusNotUnderCommand},
		{3, StatusRestrictedManeuverability},
		{4, StatusConstrainedByDraft},
		{5, StatusMoored},
		{6, StatusAground},
		{7, StatusFishing},
		{8, StatusUnderWaySailing},
		{15, StatusNotDefined},
		// Reserved and out-of-range codes collapse to not-defined.
		{9, StatusNotDefined},
		{14, StatusNotDefined},
		{-1, StatusNotDefined},
		{99, StatusNotDefined},
	}

	for _, tt := range tests {
		if got := NavigationStatusFromCode(tt.code); got != tt.want {
			t.Errorf("Code %d: expected %s, got %s", tt.code, tt.want, got)
		}
	}
}

func TestNavigationStatusDistinct(t *testing.T) {
	// Codes 0-8 each map to a distinct value.
	seen := make(map[NavigationStatus]int)
	for code := 0; code <= 8; code++ {
		s := NavigationStatusFromCode(code)
		if s == StatusNotDefined {
			t.Errorf("Code %d unexpectedly maps to not-defined", code)
		}
		if prev, ok := seen[s]; ok {
			t.Errorf("Codes %d and %d both map to %s", prev, code, s)
		}
		seen[s] = code
	}
}
