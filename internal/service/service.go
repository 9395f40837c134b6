package service

import (
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/identity"
	"github.com/Kerhoff/hive/internal/media"
	"github.com/Kerhoff/hive/internal/metrics"
	"github.com/Kerhoff/hive/internal/preview"
	"github.com/Kerhoff/hive/internal/repository"
)

// Options are the process-wide settings the service needs
type Options struct {
	PageSize    int
	AdminSecret string
}

// Service is the business logic layer. Every operation takes the acting
// identity and scopes all reads and writes to its family.
type Service struct {
	store       repository.Store
	identity    *identity.Resolver
	media       *media.Processor
	preview     preview.Fetcher
	metrics     *metrics.Metrics
	logger      *logrus.Logger
	pageSize    int
	adminSecret string
	now         func() time.Time
}

// New creates a new Service with all required dependencies.
func New(store repository.Store, resolver *identity.Resolver, processor *media.Processor,
	fetcher preview.Fetcher, m *metrics.Metrics, logger *logrus.Logger, opts Options) *Service {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}
	return &Service{
		store:       store,
		identity:    resolver,
		media:       processor,
		preview:     fetcher,
		metrics:     m,
		logger:      logger,
		pageSize:    pageSize,
		adminSecret: opts.AdminSecret,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// PageSize is the number of notes or posts per page
func (s *Service) PageSize() int {
	return s.pageSize
}

// MaxPage is the highest page number a listing accepts. Larger values are
// clamped to it.
const MaxPage = 1 << 20

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	if page > MaxPage {
		return MaxPage
	}
	return page
}

func (s *Service) offset(page int) int {
	page = clampPage(page)
	if page-1 > math.MaxInt32/s.pageSize {
		return math.MaxInt32
	}
	return (page - 1) * s.pageSize
}

// MaxUploadBytes is the size limit of one uploaded file, 0 when unlimited
func (s *Service) MaxUploadBytes() int64 {
	if s.media == nil {
		return 0
	}
	return s.media.MaxBytes()
}

func requireText(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalid(field, "is required")
	}
	return value, nil
}
