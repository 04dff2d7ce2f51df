package db

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v2"

	"timelock/config"
	"timelock/logs"
	"timelock/types"
)

var (
	ErrClosed        = errors.New("database is not initialized or closed")
	ErrBatchTooLarge = errors.New("write batch too large for a single transaction")
)

// Manager 封装 BadgerDB 的管理器
type Manager struct {
	Db     *badger.DB
	mu     sync.RWMutex
	Logger logs.Logger
	cfg    *config.Config
}

// NewManager 创建一个新的 DBManager 实例
func NewManager(path string, logger logs.Logger) (*Manager, error) {
	return NewManagerWithConfig(path, logger, nil)
}

// NewManagerWithConfig 创建 DBManager，可选注入整份 Config；
// cfg.Database.InMemory 为 true 时忽略 path
func NewManagerWithConfig(path string, logger logs.Logger, cfg *config.Config) (*Manager, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logs.NewNopLogger()
	}

	var opts badger.Options
	if cfg.Database.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// badger v2 不自动创建父目录，需要手动创建
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
		opts = badger.DefaultOptions(path).WithSyncWrites(cfg.Database.SyncWrites)
		if cfg.Database.ValueLogFileSize > 0 {
			opts = opts.WithValueLogFileSize(cfg.Database.ValueLogFileSize)
		}
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	logger.Info("[DB] opened badger path=%q in_memory=%v", path, cfg.Database.InMemory)

	return &Manager{
		Db:     db,
		Logger: logger,
		cfg:    cfg,
	}, nil
}

// NewInMemory 测试 / devnet 用的内存库
func NewInMemory(logger logs.Logger) (*Manager, error) {
	cfg := config.DefaultConfig()
	cfg.Database.InMemory = true
	return NewManagerWithConfig("", logger, cfg)
}

func (manager *Manager) handle() (*badger.DB, error) {
	manager.mu.RLock()
	db := manager.Db
	manager.mu.RUnlock()
	if db == nil {
		return nil, ErrClosed
	}
	return db, nil
}

// Get 读取 key；不存在时返回 (nil, nil)
func (manager *Manager) Get(key string) ([]byte, error) {
	db, err := manager.handle()
	if err != nil {
		return nil, err
	}

	var value []byte
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Scan 前缀扫描，返回所有以 prefix 开头的键值对
func (manager *Manager) Scan(prefix string) (map[string][]byte, error) {
	db, err := manager.handle()
	if err != nil {
		return nil, err
	}
	result := make(map[string][]byte)

	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result[string(k)] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ScanKeys 只扫 key，不预取 value
func (manager *Manager) ScanKeys(prefix string) ([]string, error) {
	db, err := manager.handle()
	if err != nil {
		return nil, err
	}
	var out []string

	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			out = append(out, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyBatch 在同一个 badger 事务里提交全部写操作，要么全部生效要么全部不生效。
// 事务过大时直接失败，不做拆分。
func (manager *Manager) ApplyBatch(ops []types.WriteOp) error {
	if len(ops) == 0 {
		return nil
	}
	db, err := manager.handle()
	if err != nil {
		return err
	}

	err = db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			var err error
			if op.Del {
				err = txn.Delete([]byte(op.Key))
			} else {
				err = txn.Set([]byte(op.Key), op.Value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		manager.Logger.Error("[ApplyBatch] %d ops exceed badger txn limit", len(ops))
		return fmt.Errorf("%w: %d ops", ErrBatchTooLarge, len(ops))
	}
	if err != nil {
		return fmt.Errorf("apply batch: %w", err)
	}
	return nil
}

// Close 关闭数据库，可重复调用
func (manager *Manager) Close() {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.Db != nil {
		if err := manager.Db.Close(); err != nil {
			manager.Logger.Error("[db.Close] %v", err)
		}
		manager.Db = nil
	}
}
