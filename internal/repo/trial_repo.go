package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/trialrag/trialrag/internal/model"
	appErr "github.com/trialrag/trialrag/internal/pkg/errors"
)

type TrialRepo struct {
	db *sql.DB
}

func NewTrialRepo(db *sql.DB) *TrialRepo {
	return &TrialRepo{db: db}
}

// Save upserts trials keyed by identifier and reports how many rows were
// written. Records without an nct_id or system_id are skipped.
func (r *TrialRepo) Save(ctx context.Context, trials []model.TrialRecord) (int, error) {
	now := time.Now().Unix()
	stored := 0
	for _, trial := range trials {
		id := trial.Identifier()
		if id == "" {
			continue
		}
		data, err := json.Marshal(trial)
		if err != nil {
			return stored, err
		}
		row := map[string]interface{}{
			"nct_id": id,
			"data":   string(data),
			"ctime":  now,
			"mtime":  now,
		}
		sqlStr, args, err := builder.BuildReplaceInsert("trials", []map[string]interface{}{row})
		if err != nil {
			return stored, err
		}
		if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

func (r *TrialRepo) GetByNCTID(ctx context.Context, nctID string) (model.TrialRecord, error) {
	where := map[string]interface{}{"nct_id": nctID}
	sqlStr, args, err := builder.BuildSelect("trials", where, []string{"data"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var data string
	if err := rows.Scan(&data); err != nil {
		return nil, err
	}
	var trial model.TrialRecord
	if err := json.Unmarshal([]byte(data), &trial); err != nil {
		return nil, err
	}
	return trial, nil
}

func (r *TrialRepo) List(ctx context.Context, limit, offset int) ([]model.TrialRecord, error) {
	where := map[string]interface{}{"_orderby": "id asc"}
	if limit > 0 {
		if offset < 0 {
			offset = 0
		}
		where["_limit"] = []uint{uint(offset), uint(limit)}
	}
	sqlStr, args, err := builder.BuildSelect("trials", where, []string{"data"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	trials := make([]model.TrialRecord, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var trial model.TrialRecord
		if err := json.Unmarshal([]byte(data), &trial); err != nil {
			return nil, err
		}
		trials = append(trials, trial)
	}
	return trials, rows.Err()
}

func (r *TrialRepo) Count(ctx context.Context) (int64, error) {
	sqlStr, args, err := builder.BuildSelect("trials", nil, []string{"count(1)"})
	if err != nil {
		return 0, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, nil
	}
	var count int64
	if err := rows.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
