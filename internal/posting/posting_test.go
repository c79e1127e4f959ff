package posting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRepeated(t *testing.T) {
	l := NewRepeated([]int{10, 20, 30}, []int{1, 2, 3}, 2, 50)

	assert.Equal(t, []int{10, 20, 30, 60, 70, 80}, l.IDs)
	assert.Equal(t, []int{1, 2, 3, 1, 2, 3}, l.Scores)
	assert.True(t, l.IsSorted())
}

func TestNewRepeatedSecondExample(t *testing.T) {
	l := NewRepeated([]int{10, 20, 40}, []int{1, 2, 4}, 2, 50)

	assert.Equal(t, []int{10, 20, 40, 60, 70, 90}, l.IDs)
	assert.Equal(t, []int{1, 2, 4, 1, 2, 4}, l.Scores)
}

func TestNewRepeatedZeroRepeats(t *testing.T) {
	l := NewRepeated([]int{1, 2}, []int{1, 1}, 0, 10)
	assert.True(t, l.IsEmpty())
	assert.NotNil(t, l.IDs)
}

func TestNewCopiesInput(t *testing.T) {
	ids := []int{1, 2, 3}
	scores := []int{4, 5, 6}
	l := New(ids, scores)

	ids[0] = 99
	scores[0] = 99
	assert.Equal(t, []int{1, 2, 3}, l.IDs)
	assert.Equal(t, []int{4, 5, 6}, l.Scores)
}

func TestChecksum(t *testing.T) {
	l := NewRepeated([]int{10, 20, 30}, []int{1, 2, 3}, 2, 50)
	assert.Equal(t, int64(10+20+30+60+70+80), l.Checksum())
	assert.Equal(t, int64(0), List{}.Checksum())
}

func TestIsSorted(t *testing.T) {
	tests := []struct {
		name string
		list List
		want bool
	}{
		{"empty", List{}, true},
		{"single", New([]int{5}, []int{1}), true},
		{"ascending", New([]int{1, 2, 9}, []int{0, 0, 0}), true},
		{"duplicate", New([]int{1, 2, 2}, []int{0, 0, 0}), false},
		{"descending", New([]int{3, 2}, []int{0, 0}), false},
		{"misaligned", List{IDs: []int{1, 2}, Scores: []int{1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.list.IsSorted())
		})
	}
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(2)
	b.Append(3, 30)
	b.Append(7, 70)
	b.Append(9, 90)

	l := b.List()
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []int{3, 7, 9}, l.IDs)
	assert.Equal(t, []int{30, 70, 90}, l.Scores)
}
