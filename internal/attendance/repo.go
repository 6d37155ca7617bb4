package attendance

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// StatusPresent is the only record status this workflow writes; absentees
// are never computed.
const StatusPresent = "present"

// Repository persists students, embeddings, sessions and records in Postgres.
// It is both the identity store (Roster) and the attendance ledger (Ledger).
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertStudent writes a new student row and returns it with its fresh id.
func (r *Repository) InsertStudent(ctx context.Context, name, rollNumber string) (Student, error) {
	st := Student{
		ID:         uuid.NewString(),
		Name:       name,
		RollNumber: rollNumber,
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, name, roll_number)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, st.ID, st.Name, st.RollNumber)
	if err := row.Scan(&st.CreatedAt); err != nil {
		return Student{}, fmt.Errorf("insert student: %w", err)
	}
	return st, nil
}

// InsertEmbedding stores one face embedding for a student.
func (r *Repository) InsertEmbedding(ctx context.Context, studentID string, embedding []float32) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO student_embeddings (id, student_id, embedding)
		VALUES ($1, $2, $3)
	`, uuid.NewString(), studentID, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}
	return nil
}

// MatchEmbedding runs the nearest-neighbor query: best-matching student ids
// whose cosine similarity to the query embedding is at or above threshold,
// ordered by descending similarity.
func (r *Repository) MatchEmbedding(ctx context.Context, embedding []float32, threshold float64, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 1
	}
	vec := pgvector.NewVector(embedding)
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id, 1 - (embedding <=> $1) AS similarity
		FROM student_embeddings
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, vec, threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("match embedding: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.StudentID, &m.Score); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// ListStudents returns all enrolled students, newest first.
func (r *Repository) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, roll_number, photo_url, created_at
		FROM students
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.Name, &st.RollNumber, &st.PhotoURL, &st.CreatedAt); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// UpdateStudentPhotoURL records the archived photo location for a student.
func (r *Repository) UpdateStudentPhotoURL(ctx context.Context, id, photoURL string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE students SET photo_url = $2 WHERE id = $1`, id, photoURL)
	return err
}

// CreateSession writes a new attendance session and returns the persisted row.
func (r *Repository) CreateSession(ctx context.Context, subject, teacherID string) (Session, error) {
	sess := Session{
		ID:        uuid.NewString(),
		Subject:   subject,
		TeacherID: teacherID,
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_sessions (id, subject, teacher_id)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, sess.ID, sess.Subject, sess.TeacherID)
	if err := row.Scan(&sess.CreatedAt); err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// InsertRecords writes one present record per student id in a single batch
// statement. Partial failure fails the whole batch.
func (r *Repository) InsertRecords(ctx context.Context, sessionID string, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	query := `INSERT INTO attendance_records (id, session_id, student_id, status) VALUES `
	args := make([]any, 0, len(studentIDs)*4)
	for i, sid := range studentIDs {
		if i > 0 {
			query += ","
		}
		n := i * 4
		query += fmt.Sprintf("($%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4)
		args = append(args, uuid.NewString(), sessionID, sid, StatusPresent)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert records: %w", err)
	}
	return nil
}

// UpdateSessionPhotoURL records the archived classroom photo for a session.
func (r *Repository) UpdateSessionPhotoURL(ctx context.Context, id, photoURL string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE attendance_sessions SET photo_url = $2 WHERE id = $1`, id, photoURL)
	return err
}

// ListSessions returns a teacher's sessions newest first, each with its
// present headcount.
func (r *Repository) ListSessions(ctx context.Context, teacherID string) ([]SessionSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.subject, s.teacher_id, s.photo_url, s.created_at, COUNT(rec.id)
		FROM attendance_sessions s
		LEFT JOIN attendance_records rec ON rec.session_id = s.id
		WHERE s.teacher_id = $1
		GROUP BY s.id, s.subject, s.teacher_id, s.photo_url, s.created_at
		ORDER BY s.created_at DESC
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.ID, &sum.Subject, &sum.TeacherID, &sum.PhotoURL, &sum.CreatedAt, &sum.PresentCount); err != nil {
			return nil, err
		}
		sessions = append(sessions, sum)
	}
	return sessions, rows.Err()
}

// SessionRecords returns a session's records joined with student identity.
func (r *Repository) SessionRecords(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rec.id, rec.session_id, rec.student_id, st.name, st.roll_number, rec.status, rec.created_at
		FROM attendance_records rec
		JOIN students st ON st.id = rec.student_id
		WHERE rec.session_id = $1
		ORDER BY st.roll_number
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.StudentName, &rec.RollNumber, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
