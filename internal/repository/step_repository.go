package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/unclebandit/outreach-campaigns/internal/model"
)

// StepRepositoryInterface is the campaign_steps store. Steps are only ever
// written as a whole list per campaign.
type StepRepositoryInterface interface {
	InsertSteps(ctx context.Context, campaignID int64, steps []model.PersistedStep) ([]model.PersistedStep, error)
	DeleteSteps(ctx context.Context, campaignID int64) error
	ListSteps(ctx context.Context, campaignID int64) ([]model.PersistedStep, error)
}

type StepRepository struct {
	DB *sql.DB
}

// InsertSteps writes all rows in one statement so the list lands or fails as
// a unit.
func (r *StepRepository) InsertSteps(ctx context.Context, campaignID int64, steps []model.PersistedStep) ([]model.PersistedStep, error) {
	if len(steps) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	const cols = 8
	values := make([]string, 0, len(steps))
	args := make([]interface{}, 0, len(steps)*cols)
	for i, st := range steps {
		base := i * cols
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		args = append(args, campaignID, st.StepOrder, st.Type, st.Subject, st.Content, st.Delay, st.DelayUnit, now)
	}

	query := `
        INSERT INTO campaign_steps (campaign_id, step_order, step_type, subject, content, delay_amount, delay_unit, created_at)
        VALUES ` + strings.Join(values, ", ") + `
        RETURNING id, step_order`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int]int64, len(steps))
	for rows.Next() {
		var id int64
		var order int
		if err := rows.Scan(&id, &order); err != nil {
			return nil, err
		}
		ids[order] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.PersistedStep, len(steps))
	for i, st := range steps {
		st.ID = ids[st.StepOrder]
		st.CampaignID = campaignID
		st.CreatedAt = now
		out[i] = st
	}
	return out, nil
}

func (r *StepRepository) DeleteSteps(ctx context.Context, campaignID int64) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM campaign_steps WHERE campaign_id=$1`, campaignID)
	return err
}

func (r *StepRepository) ListSteps(ctx context.Context, campaignID int64) ([]model.PersistedStep, error) {
	query := `
        SELECT id, campaign_id, step_order, step_type, subject, content, delay_amount, delay_unit, created_at
        FROM campaign_steps
        WHERE campaign_id=$1
        ORDER BY step_order ASC
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	steps := []model.PersistedStep{}
	for rows.Next() {
		var st model.PersistedStep
		if err := rows.Scan(&st.ID, &st.CampaignID, &st.StepOrder, &st.Type, &st.Subject, &st.Content,
			&st.Delay, &st.DelayUnit, &st.CreatedAt); err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

var _ StepRepositoryInterface = (*StepRepository)(nil)
