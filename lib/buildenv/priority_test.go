// Copyright 2026 The Floxenv Authors
// SPDX-License-Identifier: Apache-2.0

package buildenv

import "testing"

func TestPriorityCompareTupleOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b Priority
		want int
	}{
		{
			name: "lower package priority wins",
			a:    Priority{PackagePriority: 1, ParentOutPath: "/store/zzz"},
			b:    Priority{PackagePriority: 5, ParentOutPath: "/store/aaa"},
			want: -1,
		},
		{
			name: "parent path breaks package tie",
			a:    Priority{PackagePriority: 5, ParentOutPath: "/store/aaa"},
			b:    Priority{PackagePriority: 5, ParentOutPath: "/store/bbb"},
			want: -1,
		},
		{
			name: "internal index breaks parent tie",
			a:    Priority{PackagePriority: 5, ParentOutPath: "/store/aaa", InternalIndex: 0},
			b:    Priority{PackagePriority: 5, ParentOutPath: "/store/aaa", InternalIndex: 1},
			want: -1,
		},
		{
			name: "identical tuples compare equal",
			a:    Priority{PackagePriority: 5, ParentOutPath: "/store/aaa", InternalIndex: 2},
			b:    Priority{PackagePriority: 5, ParentOutPath: "/store/aaa", InternalIndex: 2},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("Compare(a, b) = %d, want %d", got, tt.want)
			}
			// Antisymmetry.
			if got := tt.b.Compare(tt.a); got != -tt.want {
				t.Errorf("Compare(b, a) = %d, want %d", got, -tt.want)
			}
		})
	}
}

func TestPriorityCompareTransitive(t *testing.T) {
	t.Parallel()

	low := Priority{PackagePriority: 1, ParentOutPath: "/store/ccc", InternalIndex: 9}
	mid := Priority{PackagePriority: 3, ParentOutPath: "/store/bbb", InternalIndex: 5}
	high := Priority{PackagePriority: 3, ParentOutPath: "/store/bbb", InternalIndex: 7}

	if low.Compare(mid) >= 0 || mid.Compare(high) >= 0 {
		t.Fatal("fixture ordering broken")
	}
	if low.Compare(high) >= 0 {
		t.Error("Compare is not transitive")
	}
}
