package seating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransferDeltas(t *testing.T) {
	tests := []struct {
		name       string
		oldSection string
		oldSize    int
		newSection string
		newSize    int
		want       []CounterDelta
	}{
		{
			name:       "different sections",
			oldSection: "a", oldSize: 4, newSection: "b", newSize: 4,
			want: []CounterDelta{{SectionID: "a", Delta: -4}, {SectionID: "b", Delta: 4}},
		},
		{
			name:       "different sections and size",
			oldSection: "a", oldSize: 4, newSection: "b", newSize: 6,
			want: []CounterDelta{{SectionID: "a", Delta: -4}, {SectionID: "b", Delta: 6}},
		},
		{
			name:       "same section size grows",
			oldSection: "a", oldSize: 2, newSection: "a", newSize: 5,
			want: []CounterDelta{{SectionID: "a", Delta: 3}},
		},
		{
			name:       "same section size shrinks",
			oldSection: "a", oldSize: 5, newSection: "a", newSize: 2,
			want: []CounterDelta{{SectionID: "a", Delta: -3}},
		},
		{
			name:       "nothing changed",
			oldSection: "a", oldSize: 4, newSection: "a", newSize: 4,
			want: nil,
		},
		{
			name:       "old section unknown",
			oldSection: "", oldSize: 4, newSection: "b", newSize: 4,
			want: nil,
		},
		{
			name:       "new section unknown",
			oldSection: "a", oldSize: 4, newSection: "", newSize: 4,
			want: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TransferDeltas(tc.oldSection, tc.oldSize, tc.newSection, tc.newSize)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSeatAndDeleteDeltasCancel(t *testing.T) {
	seat := SeatDelta("a", 6)
	del := DeleteDelta("a", 6)
	assert.Equal(t, 0, seat.Delta+del.Delta, "seating then deleting the entry is counter-neutral")
}

func TestApplyFloor(t *testing.T) {
	assert.Equal(t, 7, ApplyFloor(4, 3))
	assert.Equal(t, 1, ApplyFloor(4, -3))
	assert.Equal(t, 0, ApplyFloor(4, -4))
	assert.Equal(t, 0, ApplyFloor(2, -9), "corrections never drive a counter negative")
	assert.Equal(t, 3, ApplyFloor(0, 3))
}
