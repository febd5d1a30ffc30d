package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityEntry_Close(t *testing.T) {
	e := NewActivityEntry(Window{Name: "Editor", Title: "main.ts"}, 1000)
	assert.True(t, e.IsOpen())
	assert.Equal(t, int64(0), e.Duration())

	e.Close(1500)
	require.False(t, e.IsOpen())
	assert.Equal(t, int64(500), e.Duration())
	assert.True(t, e.Valid())
}

func TestActivityEntry_CloseNeverInverts(t *testing.T) {
	e := NewActivityEntry(Window{Name: "Editor"}, 1000)
	e.Close(900)
	assert.Equal(t, int64(1000), *e.End)
	assert.True(t, e.Valid())
}

func TestActivityEntry_ZeroDurationIsValid(t *testing.T) {
	e := NewActivityEntry(Window{Name: "Editor"}, 1000)
	e.Close(1000)
	assert.True(t, e.Valid())
	assert.Equal(t, int64(0), e.Duration())
}

func TestActivityEntry_Clone(t *testing.T) {
	e := NewActivityEntry(Window{Name: "Editor"}, 1)
	e.Close(2)
	c := e.Clone()
	*c.End = 99
	assert.Equal(t, int64(2), *e.End)
}

func TestActivityEntry_OpenJSON(t *testing.T) {
	e := NewActivityEntry(Window{Name: "Editor", Title: "main.ts"}, 1)
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Editor","title":"main.ts","start":1,"end":null}`, string(data))
}

func TestWindow_Focused(t *testing.T) {
	var none *Window
	assert.False(t, none.Focused())
	assert.False(t, (&Window{Title: "untitled"}).Focused())
	assert.True(t, (&Window{Name: "Editor"}).Focused())
}

func TestNewSprintSummary(t *testing.T) {
	end := func(v int64) *int64 { return &v }

	tests := []struct {
		name       string
		activities []ActivityEntry
		want       SprintSummary
	}{
		{
			name: "empty",
			want: SprintSummary{},
		},
		{
			name: "zero duration entry counts",
			activities: []ActivityEntry{
				{Name: "a", Start: 5, End: end(5)},
			},
			want: SprintSummary{ActivitiesCount: 1},
		},
		{
			name: "fractional average",
			activities: []ActivityEntry{
				{Name: "a", Start: 0, End: end(1)},
				{Name: "b", Start: 1, End: end(3)},
			},
			want: SprintSummary{ActivitiesCount: 2, TotalDuration: 3, AverageDuration: 1.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewSprintSummary(tt.activities))
		})
	}
}

func TestNewSprintEntry_CopiesActivities(t *testing.T) {
	end := int64(10)
	acts := []ActivityEntry{{Name: "a", Start: 0, End: &end}}
	s := NewSprintEntry(10, 0, 10, acts)

	acts[0].Name = "changed"
	*acts[0].End = 20

	assert.Equal(t, "a", s.Activities[0].Name)
	assert.Equal(t, int64(10), *s.Activities[0].End)
	assert.Equal(t, int64(10), s.Summary.TotalDuration)
}

func TestSprintEntry_JSONFields(t *testing.T) {
	s := NewSprintEntry(3, 1, 3, nil)
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":3,"start":1,"end":3,"activities":[],
		"summary":{"activitiesCount":0,"totalDuration":0,"averageDuration":0}}`, string(data))
}
