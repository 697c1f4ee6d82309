package gateway

import (
	"errors"
	"fmt"
	"time"
)

const (
	// CoordinateSystem tags records whose boxes are in the fixed logical space.
	CoordinateSystem = "normalized"
	// NormalizedWidth is the logical space width recorded with every submission.
	NormalizedWidth = 1920
	// NormalizedHeight is the logical space height recorded with every submission.
	NormalizedHeight = 1080
	// AnnotationFrame is the one-based frame the boxes were drawn on.
	AnnotationFrame = 1
)

// Clip is an opaque handle to one clip folder. Frames is the number of frame
// images the backend found; zero means unknown.
type Clip struct {
	Index  int    `json:"index"`
	Folder string `json:"folder"`
	Frames int    `json:"frames,omitempty"`
}

// ClipList is the clip assignment for one annotator. StartIndex seeds the
// global counter used for record keeping.
type ClipList struct {
	StartIndex int    `json:"startIndex"`
	Clips      []Clip `json:"clips"`
	TotalClips int    `json:"totalClips"`
}

// AnnotatorIdentity is the response of the annotator id endpoint.
type AnnotatorIdentity struct {
	AnnotatorID string `json:"annotatorId"`
}

// Group is one rated box in logical coordinates.
type Group struct {
	GroupID    int    `json:"groupId"`
	BBox       [4]int `json:"bbox"`
	Confidence int    `json:"confidence"`
}

// ClipInfo is the fixed metadata attached to each record.
type ClipInfo struct {
	TotalFrames      int    `json:"totalFrames"`
	AnnotationFrame  int    `json:"annotationFrame"`
	CoordinateSystem string `json:"coordinateSystem"`
	NormalizedWidth  int    `json:"normalizedWidth"`
	NormalizedHeight int    `json:"normalizedHeight"`
}

// NewClipInfo returns metadata for a clip of totalFrames frames.
func NewClipInfo(totalFrames int) ClipInfo {
	return ClipInfo{
		TotalFrames:      totalFrames,
		AnnotationFrame:  AnnotationFrame,
		CoordinateSystem: CoordinateSystem,
		NormalizedWidth:  NormalizedWidth,
		NormalizedHeight: NormalizedHeight,
	}
}

// AnnotationRecord is the submission for one clip.
type AnnotationRecord struct {
	Timestamp        time.Time `json:"timestamp"`
	ClipPosition     int       `json:"clipPosition"`
	GlobalIndex      int       `json:"globalIndex"`
	ClipFolder       string    `json:"clipFolder"`
	WasWatched       bool      `json:"wasWatched"`
	TotalWatchTimeMs int64     `json:"totalWatchTimeMs"`
	GroupCount       int       `json:"groupCount"`
	Groups           []Group   `json:"groups"`
	ClipInfo         ClipInfo  `json:"clipInfo"`
}

// Validate checks the invariants a backend relies on before storing a record.
func (r AnnotationRecord) Validate() error {
	if r.ClipFolder == "" {
		return errors.New("clipFolder is required")
	}
	if r.ClipPosition < 1 {
		return fmt.Errorf("clipPosition must be 1-based, got %d", r.ClipPosition)
	}
	if r.TotalWatchTimeMs < 0 {
		return fmt.Errorf("totalWatchTimeMs must not be negative, got %d", r.TotalWatchTimeMs)
	}
	if r.GroupCount != len(r.Groups) {
		return fmt.Errorf("groupCount %d does not match %d groups", r.GroupCount, len(r.Groups))
	}
	for i, g := range r.Groups {
		if g.GroupID != i+1 {
			return fmt.Errorf("group %d has groupId %d", i+1, g.GroupID)
		}
		if g.Confidence < 1 || g.Confidence > 5 {
			return fmt.Errorf("group %d confidence %d outside 1..5", g.GroupID, g.Confidence)
		}
		if g.BBox[0] > g.BBox[2] || g.BBox[1] > g.BBox[3] {
			return fmt.Errorf("group %d bbox %v is not normalized", g.GroupID, g.BBox)
		}
	}
	return nil
}

// SessionSummary is the optional terminal batch of every record in a session.
type SessionSummary struct {
	CompletedAt time.Time          `json:"completedAt"`
	TotalClips  int                `json:"totalClips"`
	Annotations []AnnotationRecord `json:"annotations"`
}

// Ack is the backend's reply to a submission. Score is set in validation mode.
type Ack struct {
	Success      bool     `json:"success"`
	AnnotationID int64    `json:"annotationId,omitempty"`
	Stored       int      `json:"stored,omitempty"`
	Score        *float64 `json:"score,omitempty"`
	Message      string   `json:"message,omitempty"`
}

// Frame is an encoded frame image.
type Frame struct {
	Data        []byte
	ContentType string
}

// ErrorResponse is the JSON body of failed backend calls.
type ErrorResponse struct {
	Error string `json:"error"`
}
