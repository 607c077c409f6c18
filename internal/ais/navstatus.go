// VesselWatch - AIS Vessel Position Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vesselwatch

package ais

// NavigationStatus is the normalized AIS navigational status.
type NavigationStatus string

// Navigational statuses per ITU-R M.1371 codes 0-8 and 15.
const (
	StatusUnderWayEngine            NavigationStatus = "under-way-engine"
	StatusAtAnchor                  NavigationStatus = "at-anchor"
	StatusNotUnderCommand           NavigationStatus = "not-under-command"
	StatusRestrictedManeuverability NavigationStatus = "restricted-maneuverability"
	StatusConstrainedByDraft        NavigationStatus = "constrained-by-draft"
	StatusMoored                    NavigationStatus = "moored"
	StatusAground                   NavigationStatus = "aground"
	StatusFishing                   NavigationStatus = "fishing"
	StatusUnderWaySailing           NavigationStatus = "under-way-sailing"
	StatusNotDefined                NavigationStatus = "not-defined"
)

// navigationStatusByCode maps the wire integer codes every feed uses.
var navigationStatusByCode = map[int]NavigationStatus{
	0:  StatusUnderWayEngine,
	1:  StatusAtAnchor,
	2:  StatusNotUnderCommand,
	3:  StatusRestrictedManeuverability,
	4:  StatusConstrainedByDraft,
	5:  StatusMoored,
	6:  StatusAground,
	7:  StatusFishing,
	8:  StatusUnderWaySailing,
	15: StatusNotDefined,
}

// NavigationStatusFromCode maps an AIS status code to the normalized
// enumeration. Codes 0-8 and 15 map to distinct statuses; everything else,
// including the reserved 9-14 band, maps to StatusNotDefined.
func NavigationStatusFromCode(code int) NavigationStatus {
	if s, ok := navigationStatusByCode[code]; ok {
		return s
	}
	return StatusNotDefined
}

// String returns the status as its wire string.
func (s NavigationStatus) String() string {
	return string(s)
}
