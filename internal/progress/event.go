package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StageRunStart   Stage = "RUN_START"
	StageRunDone    Stage = "RUN_DONE"
	StageRunError   Stage = "RUN_ERROR"
	StageStoreStart Stage = "STORE_START"
	StageStoreDone  Stage = "STORE_DONE"
	StageStoreError Stage = "STORE_ERROR"
	StageImageDone  Stage = "IMAGE_DONE"
)

// Result classifies a processed image.
type Result string

// Image results.
const (
	ResultHit    Result = "hit"
	ResultMiss   Result = "miss"
	ResultFailed Result = "failed"
)

// Event captures one scanner milestone.
type Event struct {
	// RunID is the 16-byte form of the run UUID.
	RunID [16]byte
	TS    time.Time
	Stage Stage
	// Store scopes store and image events.
	Store string
	// File is the working filename of an image event.
	File string
	URL  string
	// Result is required on image events.
	Result Result
	// Term is the matched search term of a hit.
	Term string
	// Bytes is the downloaded size of an image.
	Bytes int64
	// Images counts the images found on a store page (STORE_DONE only).
	Images int
	Dur    time.Duration
	// Note carries low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
	case StageStoreStart, StageStoreDone, StageStoreError:
		if e.Store == "" {
			return fmt.Errorf("%s requires store", e.Stage)
		}
	case StageImageDone:
		if e.Store == "" || e.File == "" {
			return errors.New("image event requires store and file")
		}
		switch e.Result {
		case ResultHit:
			if e.Term == "" {
				return errors.New("hit requires term")
			}
		case ResultMiss, ResultFailed:
		default:
			return fmt.Errorf("unknown image result %q", e.Result)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID back to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// ParseRunID converts a textual run ID into the Event form.
func ParseRunID(runID string) ([16]byte, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return [16]byte{}, fmt.Errorf("parse run id: %w", err)
	}
	return UUIDToBytes(id), nil
}
