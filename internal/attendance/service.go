package attendance

import (
	"context"
	"errors"
	"log"
	"time"

	"attendance/internal/faceclient"
)

// Student is an enrolled identity. Immutable after registration except for
// the archived photo URL.
type Student struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	RollNumber string    `json:"roll_number"`
	PhotoURL   string    `json:"photo_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Session represents one attendance-taking event: one photo, one subject,
// one teacher, one moment.
type Session struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	TeacherID string    `json:"teacher_id"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionSummary is a session with its present headcount, for history views.
type SessionSummary struct {
	Session
	PresentCount int `json:"present_count"`
}

// Record is one student's presence in one session, joined with identity for
// the read path.
type Record struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	RollNumber  string    `json:"roll_number"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Match is a nearest-neighbor candidate from the roster.
type Match struct {
	StudentID string
	Score     float64
}

// TakeResult is what a successful take-attendance call reports back.
type TakeResult struct {
	SessionID    string `json:"session_id"`
	PresentCount int    `json:"present_count"`
}

// FaceExtractor produces embeddings for faces found in an image. Enforcing
// mode treats a faceless image as an error; non-enforcing mode returns an
// empty slice instead.
type FaceExtractor interface {
	ExtractFaces(ctx context.Context, image []byte, enforce bool) ([]faceclient.DetectedFace, error)
}

// Roster is the identity store: students, their embeddings, and the
// nearest-neighbor match query.
type Roster interface {
	InsertStudent(ctx context.Context, name, rollNumber string) (Student, error)
	InsertEmbedding(ctx context.Context, studentID string, embedding []float32) error
	MatchEmbedding(ctx context.Context, embedding []float32, threshold float64, topK int) ([]Match, error)
}

// Ledger persists sessions and per-student presence records.
type Ledger interface {
	CreateSession(ctx context.Context, subject, teacherID string) (Session, error)
	InsertRecords(ctx context.Context, sessionID string, studentIDs []string) error
}

// Only the single best match per face is considered; there is no top-k
// disambiguation fallback.
const topMatches = 1

// Service orchestrates enrollment and attendance marking over the extractor,
// roster and ledger collaborators. It holds no per-request state; one
// instance serves the whole process.
type Service struct {
	extractor FaceExtractor
	roster    Roster
	ledger    Ledger
	threshold float64
}

// NewService wires the orchestrator. threshold is the minimum similarity for
// a face to count as a match; it is model-dependent configuration.
func NewService(extractor FaceExtractor, roster Roster, ledger Ledger, threshold float64) *Service {
	return &Service{
		extractor: extractor,
		roster:    roster,
		ledger:    ledger,
		threshold: threshold,
	}
}

// TakeAttendance converts one classroom photo into a durable, deduplicated
// attendance record set and reports the session id with the present count.
//
// A photo where every face misses the match threshold still succeeds with a
// count of zero; only a photo with no detectable faces at all is an error.
func (s *Service) TakeAttendance(ctx context.Context, subject, teacherID string, image []byte) (TakeResult, error) {
	if subject == "" || teacherID == "" {
		return TakeResult{}, validationError("subject and teacher id are required")
	}

	faces, err := s.extractor.ExtractFaces(ctx, image, false)
	if err != nil {
		return TakeResult{}, collaboratorError("face extraction failed", err)
	}
	if len(faces) == 0 {
		return TakeResult{}, ErrNoFacesDetected
	}
	facesDetected.Add(float64(len(faces)))

	// No attendance can be attributed without a session, so this failure
	// aborts the request.
	sess, err := s.ledger.CreateSession(ctx, subject, teacherID)
	if err != nil {
		return TakeResult{}, collaboratorError("failed to create attendance session", err)
	}

	// The set is the dedup mechanism: a student whose face appears twice in
	// the photo, or matches twice, still yields exactly one record.
	present := make(map[string]struct{}, len(faces))
	for _, face := range faces {
		matches, err := s.roster.MatchEmbedding(ctx, face.Embedding, s.threshold, topMatches)
		if err != nil {
			log.Printf("embedding match failed for session %s: %v", sess.ID, err)
			return TakeResult{}, collaboratorError("embedding match failed", err)
		}
		if len(matches) > 0 {
			present[matches[0].StudentID] = struct{}{}
		}
	}

	if len(present) > 0 {
		ids := make([]string, 0, len(present))
		for id := range present {
			ids = append(ids, id)
		}
		if err := s.ledger.InsertRecords(ctx, sess.ID, ids); err != nil {
			return TakeResult{}, collaboratorError("failed to record attendance", err)
		}
		studentsMatched.Add(float64(len(ids)))
	}

	sessionsTaken.Inc()
	return TakeResult{SessionID: sess.ID, PresentCount: len(present)}, nil
}

// RegisterStudent enrolls a student from a single-face photo: the student row
// first, then its embedding row. The two writes are sequential with no
// transaction; a failed embedding insert leaves the student row behind.
func (s *Service) RegisterStudent(ctx context.Context, name, rollNumber string, image []byte) (Student, error) {
	if name == "" || rollNumber == "" {
		return Student{}, validationError("name and roll number are required")
	}

	faces, err := s.extractor.ExtractFaces(ctx, image, true)
	if err != nil {
		if errors.Is(err, faceclient.ErrNoFaceDetected) {
			return Student{}, ErrNoFaceDetected
		}
		return Student{}, collaboratorError("face extraction failed", err)
	}
	if len(faces) == 0 {
		return Student{}, ErrNoFaceDetected
	}

	st, err := s.roster.InsertStudent(ctx, name, rollNumber)
	if err != nil {
		return Student{}, collaboratorError("failed to register student", err)
	}
	if err := s.roster.InsertEmbedding(ctx, st.ID, faces[0].Embedding); err != nil {
		return Student{}, collaboratorError("failed to store face embedding", err)
	}

	studentsRegistered.Inc()
	return st, nil
}
