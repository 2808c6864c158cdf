package allotments

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/recruitment-backend/pkg/db"
	"github.com/angelmondragon/recruitment-backend/pkg/db/dbtest"
	"github.com/angelmondragon/recruitment-backend/pkg/db/models"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	"github.com/angelmondragon/recruitment-backend/pkg/logger"
	"github.com/angelmondragon/recruitment-backend/pkg/mailer"
	"github.com/angelmondragon/recruitment-backend/pkg/storage"
)

const (
	testMaxRetries = 2
	letterPath     = "letters/allotment.pdf"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []mailer.Message
	failFor  map[string]error
}

func (f *fakeSender) Send(ctx context.Context, msg mailer.Message) (mailer.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return mailer.Result{}, err
	}
	if err, ok := f.failFor[msg.To]; ok {
		return mailer.Result{}, err
	}
	f.messages = append(f.messages, msg)
	return mailer.Result{MessageID: "msg-" + msg.To}, nil
}

func (f *fakeSender) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.messages))
	for _, msg := range f.messages {
		out = append(out, msg.To)
	}
	return out
}

type harness struct {
	t          *testing.T
	conn       *gorm.DB
	fixture    *dbtest.Fixture
	svc        Service
	dispatcher *Dispatcher
	sender     *fakeSender
	root       string
	admin      uuid.UUID
	post       *models.Post
	upload     *models.AllotmentUpload
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	fixture := dbtest.NewFixture(t, conn)
	now := func() time.Time { return fixture.Now() }

	repo := NewRepository(conn)
	tx := db.NewFromConn(conn)
	svc, err := NewService(ServiceParams{
		Repo:       repo,
		Tx:         tx,
		MaxRetries: testMaxRetries,
		Now:        now,
	})
	require.NoError(t, err)

	root := t.TempDir()
	files, err := storage.NewLocalResolver(root)
	require.NoError(t, err)
	sender := &fakeSender{failFor: map[string]error{}}
	dispatcher, err := NewDispatcher(DispatcherParams{
		Repo:        repo,
		Tx:          tx,
		Sender:      sender,
		Files:       files,
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		SendTimeout: time.Second,
		Now:         now,
	})
	require.NoError(t, err)

	post := fixture.Post(nil)
	return &harness{
		t:          t,
		conn:       conn,
		fixture:    fixture,
		svc:        svc,
		dispatcher: dispatcher,
		sender:     sender,
		root:       root,
		admin:      uuid.New(),
		post:       post,
		upload:     fixture.Upload(post.ID, letterPath),
	}
}

func (h *harness) writeLetter() {
	h.t.Helper()
	path := filepath.Join(h.root, filepath.FromSlash(letterPath))
	require.NoError(h.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(h.t, os.WriteFile(path, []byte("%PDF-1.4 allotment"), 0o600))
}

// selected creates a SELECTED application whose applicant has email.
func (h *harness) selected(email string) *models.Application {
	h.t.Helper()
	applicant := h.fixture.Applicant(email, nil)
	return h.fixture.Application(applicant.ID, h.post.ID, enums.ApplicationStatusSelected)
}

func (h *harness) schedule() *ScheduleResult {
	h.t.Helper()
	result, err := h.svc.Schedule(context.Background(), ScheduleInput{
		PostID:      h.post.ID,
		UploadID:    h.upload.ID,
		ScheduledAt: h.fixture.Now(),
		AdminID:     h.admin,
	})
	require.NoError(h.t, err)
	return result
}

func (h *harness) dispatch() DispatchSummary {
	h.t.Helper()
	summary, err := h.dispatcher.DispatchDue(context.Background())
	require.NoError(h.t, err)
	return summary
}

func (h *harness) loadSchedule(id uuid.UUID) models.AllotmentEmailSchedule {
	h.t.Helper()
	var schedule models.AllotmentEmailSchedule
	require.NoError(h.t, h.conn.Where("id = ?", id).First(&schedule).Error)
	return schedule
}

func (h *harness) trackingFor(applicantID uuid.UUID) models.AllotmentEmailTracking {
	h.t.Helper()
	var row models.AllotmentEmailTracking
	require.NoError(h.t, h.conn.Where("post_id = ? AND applicant_id = ?", h.post.ID, applicantID).First(&row).Error)
	return row
}

var errSMTPRejected = errors.New("550 mailbox unavailable")
