// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package models

import "testing"

func TestEventKindValid(t *testing.T) {
	tests := []struct {
		kind  EventKind
		valid bool
	}{
		{EventView, true},
		{EventLike, true},
		{EventComment, true},
		{EventKind("purchase"), false},
		{EventKind(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Valid(); got != tt.valid {
				t.Errorf("EventKind(%q).Valid() = %v, want %v", tt.kind, got, tt.valid)
			}
		})
	}
}

func TestVariantValid(t *testing.T) {
	if !VariantControl.Valid() || !VariantTreatment.Valid() {
		t.Error("known variants must be valid")
	}
	if Variant("holdout").Valid() {
		t.Error("unknown variant must be invalid")
	}
}
