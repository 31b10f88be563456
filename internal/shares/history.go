package shares

import (
	"context"                    // Context for blocking calls
	"harry_hype/internal/apperr" // Error classification
	"harry_hype/internal/domain" // Importing domain models
	"strconv"                    // String conversion

	"gorm.io/gorm" // GORM ORM library
)

const (
	defaultPageSize = 20  // Used when page_size is missing or invalid
	maxPageSize     = 100 // Upper bound on page_size
)

// HistoryPage is one page of a user's transfer history
type HistoryPage struct {
	Transactions []domain.Transaction `json:"transactions"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
	Total        int64                `json:"total"`
	TotalPages   int                  `json:"total_pages"`
	Cached       bool                 `json:"cached"`
}

// TransactionHistory lists transfers the user sent or received, newest first,
// optionally limited to one token
func (s *Service) TransactionHistory(ctx context.Context, user *domain.User, tokenID string, page, pageSize int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	cacheKey := "txhistory:user:" + user.ID + ":token:" + tokenID + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize) // One cache entry per page
	var cached HistoryPage
	if found, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		cached.Cached = true // Tell the client it came from Redis
		return &cached, nil
	}

	q := s.db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("(user_id = ? OR receiver = ?)", user.ID, user.WalletPublicKey) // Sent or received
	if tokenID != "" {
		q = q.Where("token_id = ?", tokenID)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil { // Count before paging
		return nil, apperr.Internal(err, "Failed to count transactions")
	}
	txs := []domain.Transaction{}
	if err := q.Session(&gorm.Session{}).Order("created_at desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&txs).Error; err != nil {
		return nil, apperr.Internal(err, "Failed to fetch transactions")
	}

	res := &HistoryPage{
		Transactions: txs,
		Page:         page,
		PageSize:     pageSize,
		Total:        total,
		TotalPages:   (int(total) + pageSize - 1) / pageSize, // Round up
	}
	_ = s.cache.Set(ctx, cacheKey, res, s.opts.HistoryCacheTTL)
	return res, nil
}
