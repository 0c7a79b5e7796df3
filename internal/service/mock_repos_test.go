package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"checkin-service/internal/dto"
	"checkin-service/internal/model"
	"checkin-service/internal/repository"
	pkgerrors "checkin-service/pkg/errors"
	"checkin-service/pkg/storage"
)

// ── Mock CheckRecordRepository ──

type mockCheckRecordRepo struct {
	mu        sync.Mutex
	records   []model.CheckRecord
	nextID    uint64
	createErr error
	pingErr   error
	listErr   error
	creates   int
	// onCreate 在插入成功写入前调用
	onCreate func(rec *model.CheckRecord)
	// afterCommit 在记录写入后调用，随后 Create 返回 ctx.Err()
	// 模拟提交过程中 context 结束时驱动的行为
	afterCommit func()
}

func newMockCheckRecordRepo() *mockCheckRecordRepo {
	return &mockCheckRecordRepo{nextID: 1}
}

func (m *mockCheckRecordRepo) Create(ctx context.Context, rec *model.CheckRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	if m.onCreate != nil {
		m.onCreate(rec)
	}
	rec.ID = m.nextID
	m.nextID++
	m.records = append(m.records, *rec)
	if m.afterCommit != nil {
		m.afterCommit()
		return ctx.Err()
	}
	return nil
}

func (m *mockCheckRecordRepo) GetByID(_ context.Context, id uint64) (*model.CheckRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, pkgerrors.ErrRecordNotFound
}

func (m *mockCheckRecordRepo) List(_ context.Context, f repository.CheckRecordFilter) ([]model.CheckRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var matched []model.CheckRecord
	for _, r := range m.records {
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.CheckType != "" && r.CheckType != f.CheckType {
			continue
		}
		if f.From != nil && r.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !r.CreatedAt.Before(*f.To) {
			continue
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []model.CheckRecord{}, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (m *mockCheckRecordRepo) Ping(_ context.Context) error {
	return m.pingErr
}

// ── Fault-injecting PhotoStore ──

// faultyStore 包装真实 LocalStore，按需使指定步骤失败
type faultyStore struct {
	*storage.LocalStore
	mu           sync.Mutex
	beforeRemove func(path string)
	prepareErr   error
	saveErr      error
	removeErr    error
	prepared     []string
	saved        []string
	removed      []string
}

func (s *faultyStore) Prepare(dir string) error {
	s.mu.Lock()
	s.prepared = append(s.prepared, dir)
	s.mu.Unlock()
	if s.prepareErr != nil {
		return s.prepareErr
	}
	return s.LocalStore.Prepare(dir)
}

func (s *faultyStore) Save(dir, name string, src io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	path, err := s.LocalStore.Save(dir, name, src)
	if err == nil {
		s.mu.Lock()
		s.saved = append(s.saved, path)
		s.mu.Unlock()
	}
	return path, err
}

func (s *faultyStore) Remove(path string) error {
	s.mu.Lock()
	s.removed = append(s.removed, path)
	s.mu.Unlock()
	if s.beforeRemove != nil {
		s.beforeRemove(path)
	}
	if s.removeErr != nil {
		return s.removeErr
	}
	return s.LocalStore.Remove(path)
}

// ── fixtures ──

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0x01, 0x00}

func newPhoto(filename string, content []byte) *dto.PhotoUpload {
	return &dto.PhotoUpload{
		Filename: filename,
		Size:     int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

func validForm() *dto.CheckInForm {
	return &dto.CheckInForm{
		Username:  "สมชาย",
		CheckType: "IN",
		Latitude:  "13.75",
		Longitude: "100.50",
		Photo:     newPhoto("capture.jpg", jpegBytes),
	}
}

var errDriver = errors.New("Error 1146 (42S02): Table 'checkin.check_records' doesn't exist")
