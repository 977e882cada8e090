package storage

import (
	"context"
	"fmt"
	"time"

	"p2p-reconciler/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Config selects the database driver and connection string.
type Config struct {
	// Driver is "postgres" for deployments or "sqlite" for local runs.
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// Validate checks the storage configuration.
func (c *Config) Validate() error {
	switch c.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("storage DSN cannot be empty")
	}
	return nil
}

// Open connects to the configured database.
func Open(config *Config) (*gorm.DB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	switch config.Driver {
	case "postgres":
		return gorm.Open(postgres.Open(config.DSN), opts)
	default:
		return gorm.Open(sqlite.Open(config.DSN), opts)
	}
}

// Row models. The domain structs stay free of persistence tags; mapping
// happens at this boundary.

type userRow struct {
	ID        int64 `gorm:"primaryKey"`
	Username  string
	CreatedAt time.Time
}

func (userRow) TableName() string { return "users" }

type cabinetRow struct {
	ID     int64 `gorm:"primaryKey"`
	IdexID int64 `gorm:"uniqueIndex"`
	Login  string
}

func (cabinetRow) TableName() string { return "cabinets" }

type transactionRow struct {
	ID           int64     `gorm:"primaryKey"`
	OrderNo      string    `gorm:"size:64;uniqueIndex:idx_transactions_user_order"`
	UserID       int64     `gorm:"index;uniqueIndex:idx_transactions_user_order"`
	DateTime     time.Time `gorm:"index"`
	Type         string    `gorm:"size:8"`
	Asset        string    `gorm:"size:16"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,8)"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(20,8)"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(20,8)"`
	Counterparty string
	Status       string `gorm:"size:32"`
}

func (transactionRow) TableName() string { return "transactions" }

type externalTransactionRow struct {
	ID         int64          `gorm:"primaryKey"`
	ExternalID int64          `gorm:"uniqueIndex:idx_external_cabinet_external"`
	CabinetID  int64          `gorm:"index;uniqueIndex:idx_external_cabinet_external"`
	Amount     models.Payload `gorm:"type:text"`
	Total      models.Payload `gorm:"type:text"`
	Status     int
	ApprovedAt *time.Time `gorm:"index"`
}

func (externalTransactionRow) TableName() string { return "external_transactions" }

type matchRow struct {
	ID                    int64 `gorm:"primaryKey"`
	ExternalTransactionID int64 `gorm:"uniqueIndex"`
	TransactionID         int64 `gorm:"uniqueIndex"`
	TimeDifference        int64
	GrossExpense          decimal.Decimal `gorm:"type:decimal(20,8)"`
	GrossIncome           decimal.Decimal `gorm:"type:decimal(20,8)"`
	GrossProfit           decimal.Decimal `gorm:"type:decimal(20,8)"`
	ProfitPercentage      decimal.Decimal `gorm:"type:decimal(20,8)"`
	CreatedAt             time.Time       `gorm:"autoCreateTime;index"`
}

func (matchRow) TableName() string { return "matches" }

// GormStore implements Store on a relational database via gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the schema.
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&userRow{},
		&cabinetRow{},
		&transactionRow{},
		&externalTransactionRow{},
		&matchRow{},
	)
}

// ExternalTransactions implements Store.
func (s *GormStore) ExternalTransactions(ctx context.Context, filter ExternalTransactionFilter) ([]*models.ExternalTransaction, error) {
	q := s.db.WithContext(ctx).Model(&externalTransactionRow{})

	if filter.ApprovedWithin != nil {
		q = q.Where("approved_at IS NOT NULL").
			Where("approved_at >= ? AND approved_at <= ?", filter.ApprovedWithin.Start, filter.ApprovedWithin.End)
	}

	var rows []externalTransactionRow
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	externals := make([]*models.ExternalTransaction, len(rows))
	for i := range rows {
		externals[i] = rows[i].toModel()
	}
	return externals, nil
}

// Transactions implements Store.
func (s *GormStore) Transactions(ctx context.Context, filter TransactionFilter) ([]*models.Transaction, error) {
	q := s.db.WithContext(ctx).Model(&transactionRow{})

	if filter.Within != nil {
		q = q.Where("date_time >= ? AND date_time <= ?", filter.Within.Start, filter.Within.End)
	}
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}

	var rows []transactionRow
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	transactions := make([]*models.Transaction, len(rows))
	for i := range rows {
		transactions[i] = rows[i].toModel()
	}
	return transactions, nil
}

// CreateTransactions implements Store.
func (s *GormStore) CreateTransactions(ctx context.Context, transactions []*models.Transaction) (int64, error) {
	if len(transactions) == 0 {
		return 0, nil
	}

	rows := make([]transactionRow, len(transactions))
	for i, tx := range transactions {
		rows[i] = transactionRowFromModel(tx)
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	return res.RowsAffected, res.Error
}

// InsertMatches implements Store.
func (s *GormStore) InsertMatches(ctx context.Context, matches []models.Match) (int64, error) {
	if len(matches) == 0 {
		return 0, nil
	}

	rows := make([]matchRow, len(matches))
	for i, m := range matches {
		rows[i] = matchRow{
			ExternalTransactionID: m.ExternalTransactionID,
			TransactionID:         m.TransactionID,
			TimeDifference:        m.TimeDifference,
			GrossExpense:          m.GrossExpense,
			GrossIncome:           m.GrossIncome,
			GrossProfit:           m.GrossProfit,
			ProfitPercentage:      m.ProfitPercentage,
		}
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	return res.RowsAffected, res.Error
}

func (s *GormStore) matchQuery(ctx context.Context, filter MatchFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&matchRow{}).
		Joins("JOIN transactions ON transactions.id = matches.transaction_id").
		Joins("JOIN external_transactions ON external_transactions.id = matches.external_transaction_id")

	if filter.UserID != 0 || filter.InternalOnly {
		if filter.UserID != 0 {
			q = q.Where("transactions.user_id = ?", filter.UserID)
		}
		q = q.Where("transactions.date_time >= ? AND transactions.date_time <= ?",
			filter.Range.Start, filter.Range.End)
	} else {
		q = q.Where(
			"(transactions.date_time >= ? AND transactions.date_time <= ?) OR (external_transactions.approved_at >= ? AND external_transactions.approved_at <= ?)",
			filter.Range.Start, filter.Range.End, filter.Range.Start, filter.Range.End)
	}

	return q
}

// Matches implements Store.
func (s *GormStore) Matches(ctx context.Context, filter MatchFilter, page *Pagination) ([]models.Match, error) {
	q := s.matchQuery(ctx, filter).
		Select("matches.*").
		Order("matches.created_at DESC, matches.id DESC")

	if page != nil {
		p := page.Normalize()
		q = q.Offset(p.Offset()).Limit(p.PageSize)
	}

	var rows []matchRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	return s.expandMatches(ctx, rows)
}

// CountMatches implements Store.
func (s *GormStore) CountMatches(ctx context.Context, filter MatchFilter) (int64, error) {
	var count int64
	err := s.matchQuery(ctx, filter).Count(&count).Error
	return count, err
}

func (s *GormStore) matchedUserIDs(r TimeRange) *gorm.DB {
	return s.db.Model(&transactionRow{}).
		Select("transactions.user_id").
		Joins("JOIN matches ON matches.transaction_id = transactions.id").
		Where("transactions.date_time >= ? AND transactions.date_time <= ?", r.Start, r.End)
}

// UsersWithMatches implements Store.
func (s *GormStore) UsersWithMatches(ctx context.Context, r TimeRange, page *Pagination) ([]models.User, error) {
	q := s.db.WithContext(ctx).Model(&userRow{}).
		Where("id IN (?)", s.matchedUserIDs(r)).
		Order("id ASC")

	if page != nil {
		p := page.Normalize()
		q = q.Offset(p.Offset()).Limit(p.PageSize)
	}

	var rows []userRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	users := make([]models.User, len(rows))
	for i, row := range rows {
		users[i] = models.User{ID: row.ID, Username: row.Username, CreatedAt: row.CreatedAt}
	}
	return users, nil
}

// CountUsersWithMatches implements Store.
func (s *GormStore) CountUsersWithMatches(ctx context.Context, r TimeRange) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&userRow{}).
		Where("id IN (?)", s.matchedUserIDs(r)).
		Count(&count).Error
	return count, err
}

// expandMatches loads the joined transaction, external transaction and user
// detail for a page of match rows.
func (s *GormStore) expandMatches(ctx context.Context, rows []matchRow) ([]models.Match, error) {
	if len(rows) == 0 {
		return []models.Match{}, nil
	}

	txIDs := make([]int64, 0, len(rows))
	extIDs := make([]int64, 0, len(rows))
	for _, row := range rows {
		txIDs = append(txIDs, row.TransactionID)
		extIDs = append(extIDs, row.ExternalTransactionID)
	}

	var txRows []transactionRow
	if err := s.db.WithContext(ctx).Where("id IN ?", txIDs).Find(&txRows).Error; err != nil {
		return nil, err
	}
	transactions := make(map[int64]*models.Transaction, len(txRows))
	userIDs := make([]int64, 0, len(txRows))
	for i := range txRows {
		transactions[txRows[i].ID] = txRows[i].toModel()
		userIDs = append(userIDs, txRows[i].UserID)
	}

	var extRows []externalTransactionRow
	if err := s.db.WithContext(ctx).Where("id IN ?", extIDs).Find(&extRows).Error; err != nil {
		return nil, err
	}
	externals := make(map[int64]*models.ExternalTransaction, len(extRows))
	for i := range extRows {
		externals[extRows[i].ID] = extRows[i].toModel()
	}

	var uRows []userRow
	if err := s.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&uRows).Error; err != nil {
		return nil, err
	}
	users := make(map[int64]*models.User, len(uRows))
	for _, row := range uRows {
		users[row.ID] = &models.User{ID: row.ID, Username: row.Username, CreatedAt: row.CreatedAt}
	}

	matches := make([]models.Match, len(rows))
	for i, row := range rows {
		m := models.Match{
			ID:                    row.ID,
			ExternalTransactionID: row.ExternalTransactionID,
			TransactionID:         row.TransactionID,
			TimeDifference:        row.TimeDifference,
			GrossExpense:          row.GrossExpense,
			GrossIncome:           row.GrossIncome,
			GrossProfit:           row.GrossProfit,
			ProfitPercentage:      row.ProfitPercentage,
			CreatedAt:             row.CreatedAt,
		}
		m.Transaction = transactions[row.TransactionID]
		m.ExternalTransaction = externals[row.ExternalTransactionID]
		if m.Transaction != nil {
			m.User = users[m.Transaction.UserID]
		}
		matches[i] = m
	}

	return matches, nil
}

func (row *transactionRow) toModel() *models.Transaction {
	return &models.Transaction{
		ID:           row.ID,
		OrderNo:      row.OrderNo,
		UserID:       row.UserID,
		DateTime:     row.DateTime,
		Type:         models.TransactionType(row.Type),
		Asset:        row.Asset,
		Amount:       row.Amount,
		TotalPrice:   row.TotalPrice,
		UnitPrice:    row.UnitPrice,
		Counterparty: row.Counterparty,
		Status:       row.Status,
	}
}

func transactionRowFromModel(tx *models.Transaction) transactionRow {
	return transactionRow{
		ID:           tx.ID,
		OrderNo:      tx.OrderNo,
		UserID:       tx.UserID,
		DateTime:     tx.DateTime,
		Type:         tx.Type.String(),
		Asset:        tx.Asset,
		Amount:       tx.Amount,
		TotalPrice:   tx.TotalPrice,
		UnitPrice:    tx.UnitPrice,
		Counterparty: tx.Counterparty,
		Status:       tx.Status,
	}
}

func (row *externalTransactionRow) toModel() *models.ExternalTransaction {
	return &models.ExternalTransaction{
		ID:         row.ID,
		ExternalID: row.ExternalID,
		CabinetID:  row.CabinetID,
		Amount:     row.Amount,
		Total:      row.Total,
		Status:     row.Status,
		ApprovedAt: row.ApprovedAt,
	}
}
