package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventValidate(t *testing.T) {
	t.Parallel()

	id := UUIDToBytes(uuid.New())
	now := time.Now()
	cases := []struct {
		name    string
		evt     Event
		wantErr bool
	}{
		{"run start", Event{RunID: id, TS: now, Stage: StageRunStart}, false},
		{"missing id", Event{TS: now, Stage: StageRunStart}, true},
		{"missing ts", Event{RunID: id, Stage: StageRunStart}, true},
		{"store without name", Event{RunID: id, TS: now, Stage: StageStoreStart}, true},
		{"store", Event{RunID: id, TS: now, Stage: StageStoreDone, Store: "kiwi", Images: 3}, false},
		{"image miss", Event{RunID: id, TS: now, Stage: StageImageDone, Store: "kiwi", File: "kiwi_img1.png", Result: ResultMiss}, false},
		{"hit without term", Event{RunID: id, TS: now, Stage: StageImageDone, Store: "kiwi", File: "kiwi_img1.png", Result: ResultHit}, true},
		{"unknown result", Event{RunID: id, TS: now, Stage: StageImageDone, Store: "kiwi", File: "f", Result: "maybe"}, true},
		{"unknown stage", Event{RunID: id, TS: now, Stage: "NOPE"}, true},
		{"negative duration", Event{RunID: id, TS: now, Stage: StageRunDone, Dur: -time.Second}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.evt.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseRunIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	b, err := ParseRunID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, Event{RunID: b}.RunUUID())

	_, err = ParseRunID("not-a-uuid")
	require.Error(t, err)
}
