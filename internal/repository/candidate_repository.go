package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/unclebandit/outreach-campaigns/internal/model"
)

// CandidateRepositoryInterface attaches recipients to campaigns.
type CandidateRepositoryInterface interface {
	LinkCandidates(ctx context.Context, link model.CandidateLink) (int, error)
	ListCandidateIDs(ctx context.Context, campaignID int64) ([]string, error)
}

type CandidateRepository struct {
	DB *sql.DB
}

// LinkCandidates is idempotent per (campaign, candidate) and refreshes the
// header's candidate counter. It returns how many new links were written.
func (r *CandidateRepository) LinkCandidates(ctx context.Context, link model.CandidateLink) (int, error) {
	now := time.Now().UTC()
	added := 0
	for _, candidateID := range link.CandidateIDs {
		res, err := r.DB.ExecContext(ctx, `
            INSERT INTO campaign_candidates (campaign_id, candidate_id, source, status, created_at)
            VALUES ($1, $2, $3, 'pending', $4)
            ON CONFLICT (campaign_id, candidate_id) DO NOTHING`,
			link.CampaignID, candidateID, link.Source, now)
		if err != nil {
			return added, err
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}

	_, err := r.DB.ExecContext(ctx, `
        UPDATE campaigns
        SET candidates_count = (SELECT COUNT(*) FROM campaign_candidates WHERE campaign_id = $1)
        WHERE id = $1`, link.CampaignID)
	return added, err
}

func (r *CandidateRepository) ListCandidateIDs(ctx context.Context, campaignID int64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT candidate_id FROM campaign_candidates WHERE campaign_id=$1 ORDER BY id`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ CandidateRepositoryInterface = (*CandidateRepository)(nil)
