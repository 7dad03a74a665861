package teacher

import (
	"context"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/etbur/eschool-portal/internal/models"
	"github.com/etbur/eschool-portal/internal/store"
)

// API is the subset of the school API client the provider drives.
type API interface {
	GetProfile(ctx context.Context) (*models.Profile, error)
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.Profile, error)
	GetSubjects(ctx context.Context) ([]models.Subject, error)
	GetClasses(ctx context.Context) ([]models.ClassSection, error)
	GetSchedule(ctx context.Context) (models.Schedule, error)
	GetStudents(ctx context.Context, query url.Values) (*models.StudentList, error)
	GetAttendance(ctx context.Context, query url.Values) (*models.AttendanceList, error)
	MarkAttendance(ctx context.Context, record models.AttendanceRecord) (*models.AttendanceRecord, error)
	MarkBulkAttendance(ctx context.Context, records []models.AttendanceRecord) (*models.BulkAttendanceResult, error)
	GetGrades(ctx context.Context, query url.Values) (*models.GradeList, error)
	AddGrade(ctx context.Context, grade models.GradeRecord) (*models.GradeRecord, error)
	UpdateGrade(ctx context.Context, grade models.GradeRecord) (*models.GradeRecord, error)
	AddBulkGrades(ctx context.Context, grades []models.GradeRecord) (*models.BulkGradeResult, error)
	GetDashboard(ctx context.Context) (*models.DashboardSummary, error)
	GetReport(ctx context.Context, reportType string, query url.Values) (models.Report, error)
	ExportAttendance(ctx context.Context, query url.Values) ([]byte, error)
	ExportGrades(ctx context.Context, query url.Values) ([]byte, error)
	ExportStudents(ctx context.Context, query url.Values) ([]byte, error)
	AvailableSubjects(ctx context.Context) ([]models.AvailableSubject, error)
	AvailableSections(ctx context.Context) ([]models.AvailableSection, error)
	GradeTypes(ctx context.Context) ([]models.GradeTypeOption, error)
}

// SliceRecorder observes how many store slices are loading or failed after each change.
type SliceRecorder interface {
	SetStoreSlices(loading, failed int)
}

// Downloader receives exported files and returns where they were stored.
type Downloader interface {
	Save(filename string, data []byte) (string, error)
}

// Provider binds one teacher store to the actions that fill it. It lives from Mount to Unmount;
// afterwards every action is a no-op against a closed store.
type Provider struct {
	api       API
	store     *store.Store
	downloads Downloader
	now       func() time.Time
	logger    *zap.Logger
	slices    SliceRecorder

	mu       sync.Mutex
	lifetime context.Context
	cancel   context.CancelFunc
}

// NewProvider creates an unmounted provider with a fresh store. When recorder also implements
// SliceRecorder it receives the slice counts of every new state.
func NewProvider(api API, downloads Downloader, now func() time.Time, logger *zap.Logger, recorder store.DispatchRecorder) *Provider {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{
		api:       api,
		store:     store.New(now, logger, recorder),
		downloads: downloads,
		now:       now,
		logger:    logger,
	}
	if slices, ok := recorder.(SliceRecorder); ok {
		p.slices = slices
		p.store.Subscribe(func(s store.State) {
			slices.SetStoreSlices(s.SliceCounts())
		})
	}
	return p
}

// Store exposes the provider's store for reads and subscriptions.
func (p *Provider) Store() *store.Store {
	return p.store
}

// State is shorthand for Store().State().
func (p *Provider) State() store.State {
	return p.store.State()
}

// Mount starts the provider lifetime and runs the baseline loads (profile, subjects, classes)
// concurrently. It returns once all three have settled; a failure in one leaves the others alone.
func (p *Provider) Mount(ctx context.Context) {
	p.mu.Lock()
	if p.lifetime != nil {
		p.mu.Unlock()
		return
	}
	p.lifetime, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	p.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error { p.LoadProfile(ctx); return nil })
	g.Go(func() error { p.LoadSubjects(ctx); return nil })
	g.Go(func() error { p.LoadClasses(ctx); return nil })
	_ = g.Wait()

	p.logger.Debug("teacher provider mounted")
}

// Unmount ends the lifetime. In-flight requests are cancelled and their results discarded.
func (p *Provider) Unmount() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	p.store.Close()
	if cancel != nil {
		cancel()
	}
	if p.slices != nil {
		p.slices.SetStoreSlices(0, 0)
	}
	p.logger.Debug("teacher provider unmounted")
}

// Mounted reports whether the provider is live.
func (p *Provider) Mounted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lifetime != nil && !p.store.Closed()
}

// scope derives a request context that ends with either ctx or the provider lifetime.
func (p *Provider) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	p.mu.Lock()
	lifetime := p.lifetime
	p.mu.Unlock()

	scoped, cancel := context.WithCancel(ctx)
	if lifetime == nil {
		return scoped, cancel
	}
	stop := context.AfterFunc(lifetime, cancel)
	return scoped, func() {
		stop()
		cancel()
	}
}

func (p *Provider) today() string {
	return p.now().Format(models.DateLayout)
}
