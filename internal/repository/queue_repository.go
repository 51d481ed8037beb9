package repository

import (
	"context"
	"database/sql"

	"github.com/chamberlab/chamber-reservation/internal/model"
)

// QueueRepo manages deferred booking requests.  Admins work through
// the queue ordered by urgency, then first come first served.
type QueueRepo struct{ DB *sql.DB }

func NewQueueRepo(db *sql.DB) *QueueRepo { return &QueueRepo{DB: db} }

const queueCols = `q.id, q.user_id, q.chamber_id, q.applicant_name, q.project_name, q.test_item,
	q.fw_version, q.temperature_range, q.plate_count, q.urgency_level, q.description,
	q.queue_date, q.status, q.processed_by, q.processed_at, q.created_at`

// QueueRequestDetail pairs a queue request with the submitting user's
// username and email for admin views and notification addressing.
type QueueRequestDetail struct {
	model.QueueRequest
	Username string  `json:"username"`
	Email    *string `json:"email,omitempty"`
}

func scanQueueDetail(row interface{ Scan(...any) error }) (QueueRequestDetail, error) {
	var (
		d           QueueRequestDetail
		chamberID   sql.NullInt64
		description sql.NullString
		processedBy sql.NullInt64
		processedAt sql.NullTime
		email       sql.NullString
	)
	err := row.Scan(&d.ID, &d.UserID, &chamberID, &d.ApplicantName, &d.ProjectName, &d.TestItem,
		&d.FWVersion, &d.TemperatureRange, &d.PlateCount, &d.UrgencyLevel, &description,
		&d.QueueDate, &d.Status, &processedBy, &processedAt, &d.CreatedAt,
		&d.Username, &email)
	if err != nil {
		return d, err
	}
	if chamberID.Valid {
		cid := uint64(chamberID.Int64)
		d.ChamberID = &cid
	}
	d.Description = description.String
	if processedBy.Valid {
		pb := uint64(processedBy.Int64)
		d.ProcessedBy = &pb
	}
	if processedAt.Valid {
		t := processedAt.Time
		d.ProcessedAt = &t
	}
	if email.Valid {
		e := email.String
		d.Email = &e
	}
	return d, nil
}

// Create inserts a queue request in the pending state and populates
// its generated id.
func (r *QueueRepo) Create(ctx context.Context, qr *model.QueueRequest) error {
	var chamberID any
	if qr.ChamberID != nil {
		chamberID = *qr.ChamberID
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO queue_requests
			(user_id, chamber_id, applicant_name, project_name, test_item, fw_version,
			 temperature_range, plate_count, urgency_level, description, queue_date, status)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,'pending')`,
		qr.UserID, chamberID, qr.ApplicantName, qr.ProjectName, qr.TestItem, qr.FWVersion,
		qr.TemperatureRange, qr.PlateCount, qr.UrgencyLevel, qr.Description, qr.QueueDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	qr.ID = uint64(id)
	qr.Status = "pending"
	return nil
}

// List returns all queue requests ordered by urgency (urgent first)
// and then by submission time.
func (r *QueueRepo) List(ctx context.Context) ([]QueueRequestDetail, error) {
	const q = `SELECT ` + queueCols + `, u.username, u.email
		FROM queue_requests q
		JOIN users u ON u.id = q.user_id
		ORDER BY
			CASE q.urgency_level
				WHEN 'urgent' THEN 1
				WHEN 'high'   THEN 2
				WHEN 'normal' THEN 3
				WHEN 'low'    THEN 4
			END,
			q.created_at ASC`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]QueueRequestDetail, 0)
	for rows.Next() {
		d, err := scanQueueDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetByID fetches one queue request with its submitter.
func (r *QueueRepo) GetByID(ctx context.Context, id uint64) (QueueRequestDetail, error) {
	const q = `SELECT ` + queueCols + `, u.username, u.email
		FROM queue_requests q
		JOIN users u ON u.id = q.user_id
		WHERE q.id = ?`
	return scanQueueDetail(r.DB.QueryRowContext(ctx, q, id))
}

// Process records an admin decision.  When queueDate is non-empty the
// assigned start date is updated together with the status.
func (r *QueueRepo) Process(ctx context.Context, id uint64, status string, adminID uint64, queueDate string) error {
	var err error
	if queueDate != "" {
		_, err = r.DB.ExecContext(ctx,
			`UPDATE queue_requests SET status=?, processed_by=?, processed_at=NOW(), queue_date=? WHERE id=?`,
			status, adminID, queueDate, id)
	} else {
		_, err = r.DB.ExecContext(ctx,
			`UPDATE queue_requests SET status=?, processed_by=?, processed_at=NOW() WHERE id=?`,
			status, adminID, id)
	}
	return err
}

// Delete removes a queue request.
func (r *QueueRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM queue_requests WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
