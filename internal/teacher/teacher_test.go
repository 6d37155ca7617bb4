package teacher

import (
	"context"
	"errors"
	"testing"
)

type memoryStore struct {
	byEmail   map[string]Teacher
	hashes    map[string]string
	insertErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		byEmail: make(map[string]Teacher),
		hashes:  make(map[string]string),
	}
}

func (m *memoryStore) Insert(ctx context.Context, email, passwordHash string) (Teacher, error) {
	if m.insertErr != nil {
		return Teacher{}, m.insertErr
	}
	if _, ok := m.byEmail[email]; ok {
		return Teacher{}, errors.New("duplicate email")
	}
	t := Teacher{ID: "teacher-" + email, Email: email}
	m.byEmail[email] = t
	m.hashes[email] = passwordHash
	return t, nil
}

func (m *memoryStore) GetByEmail(ctx context.Context, email string) (*Teacher, string, error) {
	t, ok := m.byEmail[email]
	if !ok {
		return nil, "", nil
	}
	return &t, m.hashes[email], nil
}

func TestSignUpAndLogin(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store)

	created, err := svc.SignUp(context.Background(), "a@example.com", "hunter2")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if store.hashes["a@example.com"] == "hunter2" {
		t.Error("password must not be stored in plaintext")
	}

	got, err := svc.Login(context.Background(), "a@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("expected teacher %s, got %s", created.ID, got.ID)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store)

	if _, err := svc.SignUp(context.Background(), "a@example.com", "hunter2"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if _, err := svc.Login(context.Background(), "a@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := NewService(newMemoryStore())

	if _, err := svc.Login(context.Background(), "nobody@example.com", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSignUp_RequiresFields(t *testing.T) {
	svc := NewService(newMemoryStore())

	if _, err := svc.SignUp(context.Background(), "", "pw"); err == nil {
		t.Error("expected error for empty email")
	}
	if _, err := svc.SignUp(context.Background(), "a@example.com", ""); err == nil {
		t.Error("expected error for empty password")
	}
}
