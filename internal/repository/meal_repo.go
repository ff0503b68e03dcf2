package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"healthbridge-backend/internal/database"
	"healthbridge-backend/internal/models"
)

type MealRepo struct {
	db database.DB
}

func NewMealRepo(db database.DB) *MealRepo {
	return &MealRepo{db: db}
}

func (r *MealRepo) Create(ctx context.Context, m *models.MealEntry) error {
	now := time.Now().UTC().Format(time.RFC3339)
	m.CreatedAt, m.UpdatedAt = now, now

	return database.WithTx(ctx, r.db, func(tx database.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO meal_entries (date, timestamp, description, analysis_json,
			total_calories, total_protein_g, total_carbs_g, total_fat_g, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) RETURNING id`,
			m.Date, m.Timestamp, m.Description, m.AnalysisJSON,
			m.TotalCalories, m.TotalProteinG, m.TotalCarbsG, m.TotalFatG, now,
		).Scan(&m.ID)
		if err != nil {
			return fmt.Errorf("insert meal: %w", err)
		}
		return insertNutrients(ctx, tx, m.ID, m.Nutrients)
	})
}

func insertNutrients(ctx context.Context, tx database.Tx, mealID int64, nutrients []models.MealNutrient) error {
	for _, n := range nutrients {
		if _, err := tx.Exec(ctx, `INSERT INTO meal_nutrients (meal_id, nutrient_name, amount, unit)
			VALUES ($1, $2, $3, $4)`, mealID, n.Name, n.Amount, n.Unit); err != nil {
			return fmt.Errorf("insert nutrient %s: %w", n.Name, err)
		}
	}
	return nil
}

func (r *MealRepo) GetByID(ctx context.Context, id int64) (*models.MealEntry, error) {
	return getMeal(ctx, r.db, id)
}

func getMeal(ctx context.Context, q database.Querier, id int64) (*models.MealEntry, error) {
	m := &models.MealEntry{}
	var analysis *string
	err := q.QueryRow(ctx, `SELECT id, date, timestamp, description, analysis_json,
		total_calories, total_protein_g, total_carbs_g, total_fat_g, created_at, updated_at
		FROM meal_entries WHERE id = $1`, id).Scan(
		&m.ID, &m.Date, &m.Timestamp, &m.Description, &analysis,
		&m.TotalCalories, &m.TotalProteinG, &m.TotalCarbsG, &m.TotalFatG, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, database.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if analysis != nil {
		m.AnalysisJSON = *analysis
	}

	nutrients, err := loadNutrients(ctx, q, `WHERE meal_id = $1`, id)
	if err != nil {
		return nil, err
	}
	m.Nutrients = nutrients[id]
	if m.Nutrients == nil {
		m.Nutrients = []models.MealNutrient{}
	}
	return m, nil
}

func loadNutrients(ctx context.Context, q database.Querier, where string, args ...any) (map[int64][]models.MealNutrient, error) {
	rows, err := q.Query(ctx, `SELECT meal_id, nutrient_name, amount, unit FROM meal_nutrients `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64][]models.MealNutrient{}
	for rows.Next() {
		var mealID int64
		var n models.MealNutrient
		if err := rows.Scan(&mealID, &n.Name, &n.Amount, &n.Unit); err != nil {
			return nil, err
		}
		out[mealID] = append(out[mealID], n)
	}
	return out, rows.Err()
}

// Update applies a partial correction. A non-nil Nutrients replaces the set.
func (r *MealRepo) Update(ctx context.Context, id int64, req *models.UpdateMealRequest) (*models.MealEntry, error) {
	var updated *models.MealEntry
	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		m, err := getMeal(ctx, tx, id)
		if err != nil {
			return err
		}

		if req.Description != nil {
			m.Description = *req.Description
		}
		if req.TotalCalories != nil {
			m.TotalCalories = *req.TotalCalories
		}
		if req.TotalProteinG != nil {
			m.TotalProteinG = *req.TotalProteinG
		}
		if req.TotalCarbsG != nil {
			m.TotalCarbsG = *req.TotalCarbsG
		}
		if req.TotalFatG != nil {
			m.TotalFatG = *req.TotalFatG
		}
		m.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

		if _, err := tx.Exec(ctx, `UPDATE meal_entries SET description = $1, total_calories = $2,
			total_protein_g = $3, total_carbs_g = $4, total_fat_g = $5, updated_at = $6 WHERE id = $7`,
			m.Description, m.TotalCalories, m.TotalProteinG, m.TotalCarbsG, m.TotalFatG, m.UpdatedAt, id,
		); err != nil {
			return fmt.Errorf("update meal: %w", err)
		}

		if req.Nutrients != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM meal_nutrients WHERE meal_id = $1`, id); err != nil {
				return fmt.Errorf("clear nutrients: %w", err)
			}
			if err := insertNutrients(ctx, tx, id, *req.Nutrients); err != nil {
				return err
			}
			m.Nutrients = append([]models.MealNutrient{}, *req.Nutrients...)
		}

		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *MealRepo) Delete(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(tx database.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM meal_nutrients WHERE meal_id = $1`, id); err != nil {
			return err
		}
		n, err := tx.Exec(ctx, `DELETE FROM meal_entries WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListByDateRange returns meals dated within [since, until], newest first.
func (r *MealRepo) ListByDateRange(ctx context.Context, since, until string) ([]*models.MealEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, date, timestamp, description,
		total_calories, total_protein_g, total_carbs_g, total_fat_g, created_at, updated_at
		FROM meal_entries WHERE date >= $1 AND date <= $2 ORDER BY date DESC, timestamp DESC`, since, until)
	if err != nil {
		return nil, err
	}

	meals := []*models.MealEntry{}
	for rows.Next() {
		m := &models.MealEntry{}
		if err := rows.Scan(&m.ID, &m.Date, &m.Timestamp, &m.Description,
			&m.TotalCalories, &m.TotalProteinG, &m.TotalCarbsG, &m.TotalFatG, &m.CreatedAt, &m.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		meals = append(meals, m)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// SQLite has a single connection, so the first result set must be
	// closed before the nutrient query runs.
	nutrients, err := loadNutrients(ctx, r.db,
		`WHERE meal_id IN (SELECT id FROM meal_entries WHERE date >= $1 AND date <= $2)`, since, until)
	if err != nil {
		return nil, err
	}
	for _, m := range meals {
		m.Nutrients = nutrients[m.ID]
		if m.Nutrients == nil {
			m.Nutrients = []models.MealNutrient{}
		}
	}
	return meals, nil
}

func (r *MealRepo) DailySummary(ctx context.Context, date string) (*models.DailyNutritionSummary, error) {
	s := &models.DailyNutritionSummary{Date: date, Nutrients: []models.NutrientTotal{}}

	err := r.db.QueryRow(ctx, `SELECT COUNT(*),
		COALESCE(SUM(total_calories), 0), COALESCE(SUM(total_protein_g), 0),
		COALESCE(SUM(total_carbs_g), 0), COALESCE(SUM(total_fat_g), 0)
		FROM meal_entries WHERE date = $1`, date).Scan(
		&s.MealCount, &s.Totals.Calories, &s.Totals.ProteinG, &s.Totals.CarbsG, &s.Totals.FatG,
	)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT n.nutrient_name, n.unit, SUM(n.amount)
		FROM meal_nutrients n JOIN meal_entries m ON m.id = n.meal_id
		WHERE m.date = $1
		GROUP BY n.nutrient_name, n.unit
		ORDER BY n.nutrient_name, n.unit`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t models.NutrientTotal
		if err := rows.Scan(&t.NutrientName, &t.Unit, &t.TotalAmount); err != nil {
			return nil, err
		}
		s.Nutrients = append(s.Nutrients, t)
	}
	return s, rows.Err()
}
