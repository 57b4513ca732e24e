package model

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"

	"github.com/songquanpeng/contract-tester/common/config"
	"github.com/songquanpeng/contract-tester/common/random"
	"github.com/songquanpeng/contract-tester/probe/pipeline"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

var ErrRunNotFound = errors.New("run not found")

// Run is one persisted contract test run. Timestamps are unix milliseconds.
type Run struct {
	Id             string `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Endpoint       string `json:"endpoint" gorm:"type:varchar(2048)"`
	Fields         string `json:"fields"`
	Status         string `json:"status" gorm:"type:varchar(16);index"`
	TotalTests     int    `json:"total_tests"`
	PassedTests    int    `json:"passed_tests"`
	FailedTests    int    `json:"failed_tests"`
	SuccessRate    string `json:"success_rate" gorm:"type:varchar(16)"`
	GeneratedCases int    `json:"generated_cases"`
	Degradations   int    `json:"degradations"`
	Error          string `json:"error,omitempty"`
	// Result is the full result document as JSON.
	Result     string `json:"-"`
	CreatedAt  int64  `json:"created_at" gorm:"bigint;autoCreateTime:milli;index"`
	UpdatedAt  int64  `json:"updated_at" gorm:"bigint;autoUpdateTime:milli"`
	FinishedAt int64  `json:"finished_at,omitempty" gorm:"bigint"`
}

// NewRun returns a running run for endpoint. fields is the raw selection as submitted.
func NewRun(endpoint string, fields []string) *Run {
	now := time.Now().UnixMilli()
	return &Run{
		Id:        random.GetUUID(),
		Endpoint:  endpoint,
		Fields:    strings.Join(fields, ","),
		Status:    RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Finished reports whether the run reached a terminal status.
func (r *Run) Finished() bool {
	return r.Status != RunStatusRunning
}

// Finish records the outcome of the pipeline on r. res may be nil when the run
// failed before anything was executed.
func (r *Run) Finish(res *pipeline.Result, runErr error, now time.Time) error {
	r.UpdatedAt = now.UnixMilli()
	r.FinishedAt = r.UpdatedAt

	switch {
	case runErr != nil:
		r.Status = RunStatusFailed
		r.Error = runErr.Error()
	case res == nil:
		r.Status = RunStatusFailed
		r.Error = "run produced no result"
	default:
		r.Status = RunStatusCompleted
		for _, d := range res.Degradations {
			if d.Stage == pipeline.StageExecution {
				r.Status = RunStatusCancelled
				r.Error = d.Error
			}
		}
	}

	if res == nil {
		return nil
	}

	r.GeneratedCases = res.GeneratedCases
	r.Degradations = len(res.Degradations)
	if res.TestReport != nil {
		if err := copier.Copy(r, &res.TestReport.Summary); err != nil {
			return errors.Wrap(err, "copy report summary")
		}
	}

	doc, err := json.Marshal(res)
	if err != nil {
		return errors.Wrap(err, "marshal run result")
	}
	r.Result = string(doc)
	return nil
}

// Document returns the stored result document, or nil before the run finished.
func (r *Run) Document() json.RawMessage {
	if r.Result == "" {
		return nil
	}
	return json.RawMessage(r.Result)
}

func CreateRun(ctx context.Context, run *Run) error {
	err := runWithSQLiteBusyRetry(ctx, func() error {
		return DB.WithContext(ctx).Create(run).Error
	})
	if err != nil {
		return errors.Wrapf(err, "create run %s", run.Id)
	}
	gmw.GetLogger(ctx).Debug("run created", zap.String("run_id", run.Id), zap.String("endpoint", run.Endpoint))
	return nil
}

// SaveRun writes every column of run.
func SaveRun(ctx context.Context, run *Run) error {
	err := runWithSQLiteBusyRetry(ctx, func() error {
		return DB.WithContext(ctx).Save(run).Error
	})
	if err != nil {
		return errors.Wrapf(err, "save run %s", run.Id)
	}
	return nil
}

func GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := DB.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrRunNotFound, "run %s", id)
		}
		return nil, errors.Wrapf(err, "get run %s", id)
	}
	return &run, nil
}

// ListRuns pages through runs newest first. page starts at 0; size is capped
// by MaxItemsPerPage. An empty status lists every run.
func ListRuns(ctx context.Context, page, size int, status string) (runs []*Run, total int64, err error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 || size > config.MaxItemsPerPage {
		size = config.MaxItemsPerPage
	}

	query := func() *gorm.DB {
		tx := DB.WithContext(ctx).Model(&Run{})
		if status != "" {
			tx = tx.Where("status = ?", status)
		}
		return tx
	}
	if err = query().Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count runs")
	}
	// listings never carry the result document
	err = query().Omit("result").
		Order("created_at desc").
		Limit(size).
		Offset(page * size).
		Find(&runs).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list runs")
	}
	return runs, total, nil
}

// FailInterruptedRuns marks runs left running by a previous process as failed.
func FailInterruptedRuns(ctx context.Context) (int64, error) {
	now := time.Now().UnixMilli()
	tx := DB.WithContext(ctx).Model(&Run{}).
		Where("status = ?", RunStatusRunning).
		Updates(map[string]any{
			"status":      RunStatusFailed,
			"error":       "interrupted by server restart",
			"updated_at":  now,
			"finished_at": now,
		})
	if tx.Error != nil {
		return 0, errors.Wrap(tx.Error, "fail interrupted runs")
	}
	return tx.RowsAffected, nil
}
