package interfaces

import (
	"context"
	"time"

	"github.com/luminahq/insight-engine/internal/models"
)

// InsightListOptions filters and pages insight listings
type InsightListOptions struct {
	Type     models.InsightType
	Status   models.InsightStatus
	UserID   string
	Limit    int
	Offset   int
	OrderBy  string
	OrderDir string
}

// InsightStorage persists generated insights
type InsightStorage interface {
	CreateInsight(ctx context.Context, insight *models.Insight) error
	UpdateInsight(ctx context.Context, insight *models.Insight) error
	GetInsight(ctx context.Context, id string) (*models.Insight, error)
	ListInsights(ctx context.Context, orgID string, opts *InsightListOptions) ([]*models.Insight, error)
	CountInsightsByType(ctx context.Context, orgID string, insightType models.InsightType) (int, error)
	DeleteInsight(ctx context.Context, id string) error
}

// JobStorage persists scheduled insight jobs
type JobStorage interface {
	CreateJob(ctx context.Context, job *models.InsightJob) error
	UpdateJob(ctx context.Context, job *models.InsightJob) error
	DeleteJob(ctx context.Context, id string) error
	GetJob(ctx context.Context, id string) (*models.InsightJob, error)
	ListJobs(ctx context.Context, orgID string) ([]*models.InsightJob, error)
	FindActiveJobs(ctx context.Context) ([]*models.InsightJob, error)
	UpdateJobRunTimes(ctx context.Context, id string, lastRun time.Time, nextRun time.Time) error
	CountJobsByOrg(ctx context.Context, orgID string) (int, error)
}

// CreditStorage persists organization balances and the transaction ledger
type CreditStorage interface {
	GetBalance(ctx context.Context, orgID string) (*models.CreditBalance, error)
	SaveBalance(ctx context.Context, balance *models.CreditBalance) error
	AppendTransaction(ctx context.Context, txn *models.CreditTransaction) error
	ListTransactions(ctx context.Context, orgID string, limit int) ([]*models.CreditTransaction, error)
}

// DocumentStorage persists knowledge-base documents
type DocumentStorage interface {
	SaveDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, orgID string) ([]*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// KeyValueStorage stores small configuration values such as API keys
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// StorageManager bundles the typed stores over one database connection
type StorageManager interface {
	InsightStorage() InsightStorage
	JobStorage() JobStorage
	CreditStorage() CreditStorage
	DocumentStorage() DocumentStorage
	KeyValueStorage() KeyValueStorage

	// RunGC performs one storage maintenance pass (value-log garbage
	// collection for the badger backend).
	RunGC() error

	Close() error
}
