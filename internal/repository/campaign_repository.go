package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/outreach-campaigns/internal/errors"
	"github.com/unclebandit/outreach-campaigns/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	Update(ctx context.Context, id int64, patch model.CampaignPatch) error
	UpdateStatus(ctx context.Context, id int64, status model.CampaignStatus) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, offset, limit int, filter model.CampaignFilter) ([]*model.Campaign, int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, user_id, project_id, name, campaign_type, target_audience, goal, tone, email_length,
        ai_instructions, company_name, sender_name, status,
        candidates_count, emails_sent, emails_opened, emails_replied, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.UserID, &c.ProjectID, &c.Name, &c.Type, &c.TargetAudience, &c.Goal, &c.Tone, &c.EmailLength,
		&c.AIInstructions, &c.CompanyName, &c.SenderName, &c.Status,
		&c.Stats.Candidates, &c.Stats.Sent, &c.Stats.Opened, &c.Stats.Replied, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	c.CreatedAt = time.Now().UTC()
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	query := `
        INSERT INTO campaigns (user_id, project_id, name, campaign_type, target_audience, goal, tone, email_length,
            ai_instructions, company_name, sender_name, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id
    `
	return r.DB.QueryRowContext(ctx, query,
		c.UserID, c.ProjectID, c.Name, c.Type, c.TargetAudience, c.Goal, c.Tone, c.EmailLength,
		c.AIInstructions, c.CompanyName, c.SenderName, c.Status, c.CreatedAt,
	).Scan(&c.ID)
}

func (r *CampaignRepository) Update(ctx context.Context, id int64, p model.CampaignPatch) error {
	query := `
        UPDATE campaigns
        SET name=$1, campaign_type=$2, target_audience=$3, goal=$4, tone=$5, email_length=$6,
            ai_instructions=$7, company_name=$8, sender_name=$9, updated_at=$10
        WHERE id=$11
    `
	res, err := r.DB.ExecContext(ctx, query,
		p.Name, p.Type, p.TargetAudience, p.Goal, p.Tone, p.EmailLength,
		p.AIInstructions, p.CompanyName, p.SenderName, time.Now().UTC(), id,
	)
	return affectedOrNotFound(res, err, id)
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, id int64, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	res, err := r.DB.ExecContext(ctx, query, status, time.Now().UTC(), id)
	return affectedOrNotFound(res, err, id)
}

func (r *CampaignRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM campaigns WHERE id=$1`, id)
	return err
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, offset, limit int, filter model.CampaignFilter) ([]*model.Campaign, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filter.ProjectID != "" {
		where += fmt.Sprintf(" AND project_id=$%d", argPos)
		args = append(args, filter.ProjectID)
		argPos++
	}
	if filter.Status != "" {
		where += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, filter.Status)
		argPos++
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where +
		fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, total, rows.Err()
}

func affectedOrNotFound(res sql.Result, err error, id int64) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewCampaignNotFound(id)
	}
	return nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
