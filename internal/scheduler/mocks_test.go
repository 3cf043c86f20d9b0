package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"notesapp/internal/notifications/core"
	"notesapp/internal/types"
)

// ============================================================
// Mock: Clock
// ============================================================

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(t time.Time) *fixedClock { return &fixedClock{now: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ============================================================
// Mock: ReminderStore
// ============================================================

// memReminderStore keeps reminders in memory. ClaimDelivery is atomic under
// the store mutex, like the conditional UPDATE in the database.
type memReminderStore struct {
	mu        sync.Mutex
	reminders map[string]*types.Reminder

	saveErr    error
	listErr    error
	claimErr   error
	releaseErr error
	claims     int
	releases   int

	// afterList runs after ListPending has copied its batch.
	afterList func()
	// afterGet runs after GetByID has copied the reminder.
	afterGet func(id string)
}

func newMemReminderStore() *memReminderStore {
	return &memReminderStore{reminders: make(map[string]*types.Reminder)}
}

func (m *memReminderStore) put(rem *types.Reminder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rem
	m.reminders[rem.ID] = &cp
}

func (m *memReminderStore) get(id string) (*types.Reminder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rem, ok := m.reminders[id]
	if !ok {
		return nil, false
	}
	cp := *rem
	return &cp, true
}

func (m *memReminderStore) Create(_ context.Context, rem *types.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.reminders[rem.ID]; ok {
		return types.NewAppError(types.ErrCodeInternalDB, "duplicate reminder id", nil)
	}
	cp := *rem
	m.reminders[rem.ID] = &cp
	return nil
}

func (m *memReminderStore) Update(_ context.Context, rem *types.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.reminders[rem.ID]; !ok {
		return types.NewAppError(types.ErrCodeNotFoundReminder, "reminder not found", nil)
	}
	cp := *rem
	m.reminders[rem.ID] = &cp
	return nil
}

func (m *memReminderStore) GetByID(_ context.Context, id string) (*types.Reminder, error) {
	m.mu.Lock()
	rem, ok := m.reminders[id]
	if !ok {
		m.mu.Unlock()
		return nil, types.NewAppError(types.ErrCodeNotFoundReminder, "reminder not found", nil)
	}
	cp := *rem
	hook := m.afterGet
	m.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	return &cp, nil
}

func (m *memReminderStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reminders[id]; !ok {
		return types.NewAppError(types.ErrCodeNotFoundReminder, "reminder not found", nil)
	}
	delete(m.reminders, id)
	return nil
}

func (m *memReminderStore) ListPending(_ context.Context, now time.Time, limit int) ([]*types.Reminder, error) {
	m.mu.Lock()
	if m.listErr != nil {
		m.mu.Unlock()
		return nil, m.listErr
	}
	var out []*types.Reminder
	for _, rem := range m.reminders {
		if rem.IsDue(now) {
			cp := *rem
			out = append(out, &cp)
		}
	}
	hook := m.afterList
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DueAt.Before(out[j].DueAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *memReminderStore) ClaimDelivery(_ context.Context, id string, at, dueBy time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimErr != nil {
		return false, m.claimErr
	}
	rem, ok := m.reminders[id]
	if !ok || rem.Delivered {
		return false, nil
	}
	if !dueBy.IsZero() && rem.DueAt.After(dueBy) {
		return false, nil
	}
	m.claims++
	rem.Delivered = true
	rem.DeliveredAt = &at
	return true, nil
}

func (m *memReminderStore) ReleaseDelivery(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
	if m.releaseErr != nil {
		return m.releaseErr
	}
	if rem, ok := m.reminders[id]; ok {
		rem.Delivered = false
		rem.DeliveredAt = nil
	}
	return nil
}

// ============================================================
// Mock: TaskStore
// ============================================================

type memTaskStore struct {
	tasks   []*types.Task
	err     error
	cutoffs []time.Time
}

func (m *memTaskStore) ListDuePending(_ context.Context, cutoff time.Time) ([]*types.Task, error) {
	m.cutoffs = append(m.cutoffs, cutoff)
	if m.err != nil {
		return nil, m.err
	}
	var out []*types.Task
	for _, t := range m.tasks {
		if t.Status == types.TaskPending && t.DueAt != nil && !t.DueAt.After(cutoff) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ============================================================
// Mock: Channel
// ============================================================

type sentMessage struct {
	message   string
	recipient string
}

type fakeChannel struct {
	mu          sync.Mutex
	channelType types.ChannelType
	sends       []sentMessage
	// failFor makes Send fail for the listed recipients.
	failFor map[string]error
}

func newFakeChannel(t types.ChannelType) *fakeChannel {
	return &fakeChannel{channelType: t, failFor: map[string]error{}}
}

func (c *fakeChannel) Type() types.ChannelType { return c.channelType }

func (c *fakeChannel) Send(_ context.Context, message, recipient string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.failFor[recipient]; ok {
		return err
	}
	c.sends = append(c.sends, sentMessage{message: message, recipient: recipient})
	return nil
}

func (c *fakeChannel) sent() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMessage(nil), c.sends...)
}

// ============================================================
// Mock: NotificationMetrics
// ============================================================

type tickMetrics struct {
	mu        sync.Mutex
	delivered []int
	failed    []int
}

func (m *tickMetrics) RecordDelivery(context.Context, types.ChannelType, core.MetricResult) {}
func (m *tickMetrics) RecordLatency(context.Context, types.ChannelType, time.Duration)      {}
func (m *tickMetrics) RecordTick(_ context.Context, delivered, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered = append(m.delivered, delivered)
	m.failed = append(m.failed, failed)
}

// ============================================================
// Mock: Jobs, JobLocker, JobHistorian
// ============================================================

type fakeJobs struct {
	mu       sync.Mutex
	ticks    int
	sweeps   int
	tickErr  error
	sweepErr error
	report   TickReport
	deadline bool
	runID    string
}

func (f *fakeJobs) Tick(ctx context.Context) (TickReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks++
	_, f.deadline = ctx.Deadline()
	f.runID = types.GetJobRunID(ctx)
	return f.report, f.tickErr
}

func (f *fakeJobs) SweepDueTasks(context.Context) (SweepReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return SweepReport{Due: 2, Notified: 2}, f.sweepErr
}

func (f *fakeJobs) tickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticks
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]string
	err      error
	acquired []string
	released []string
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: map[string]string{}} }

func (l *fakeLocker) Acquire(_ context.Context, lockID, workerID string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if _, ok := l.held[lockID]; ok {
		return false, nil
	}
	l.held[lockID] = workerID
	l.acquired = append(l.acquired, lockID)
	return true, nil
}

func (l *fakeLocker) Release(_ context.Context, lockID, workerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[lockID] == workerID {
		delete(l.held, lockID)
	}
	l.released = append(l.released, lockID)
	return nil
}

type historyEntry struct {
	jobType string
	status  string
	items   int
	err     error
}

type fakeHistorian struct {
	mu       sync.Mutex
	nextID   int64
	startErr error
	entries  map[int64]*historyEntry
}

func newFakeHistorian() *fakeHistorian {
	return &fakeHistorian{entries: map[int64]*historyEntry{}}
}

func (h *fakeHistorian) Start(_ context.Context, jobType string) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.startErr != nil {
		return 0, h.startErr
	}
	h.nextID++
	h.entries[h.nextID] = &historyEntry{jobType: jobType, status: "running"}
	return h.nextID, nil
}

func (h *fakeHistorian) Finish(_ context.Context, id int64, status string, items int, err error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[id]
	if !ok {
		return errors.New("unknown job id")
	}
	e.status = status
	e.items = items
	e.err = err
	return nil
}
