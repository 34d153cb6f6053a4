package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/luminahq/insight-engine/internal/common"
	"github.com/luminahq/insight-engine/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	insight  interfaces.InsightStorage
	job      interfaces.JobStorage
	credit   interfaces.CreditStorage
	document interfaces.DocumentStorage
	kv       interfaces.KeyValueStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		insight:  NewInsightStorage(db, logger),
		job:      NewJobStorage(db, logger),
		credit:   NewCreditStorage(db, logger),
		document: NewDocumentStorage(db, logger),
		kv:       NewKVStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// InsightStorage returns the Insight storage interface
func (m *Manager) InsightStorage() interfaces.InsightStorage {
	return m.insight
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// CreditStorage returns the Credit storage interface
func (m *Manager) CreditStorage() interfaces.CreditStorage {
	return m.credit
}

// DocumentStorage returns the Document storage interface
func (m *Manager) DocumentStorage() interfaces.DocumentStorage {
	return m.document
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// RunGC performs one storage maintenance pass
func (m *Manager) RunGC() error {
	return m.db.RunGC()
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
