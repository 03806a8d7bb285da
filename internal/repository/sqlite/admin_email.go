package sqlite

import (
	"context"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type adminEmailRepo struct {
	db dbtx
}

func (r *adminEmailRepo) Get(ctx context.Context) (*repository.AdminEmailSettings, error) {
	var (
		s      repository.AdminEmailSettings
		active int
	)
	err := r.db.QueryRowContext(ctx, `SELECT admin_email, is_active, updated_at FROM admin_email_settings WHERE id = 1`).
		Scan(&s.AdminEmail, &active, &s.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	s.IsActive = active == 1
	return &s, nil
}

func (r *adminEmailRepo) Save(ctx context.Context, s *repository.AdminEmailSettings) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admin_email_settings(id, admin_email, is_active, updated_at) VALUES(1, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET admin_email = excluded.admin_email, is_active = excluded.is_active, updated_at = excluded.updated_at`,
		s.AdminEmail, boolToInt(s.IsActive), s.UpdatedAt)
	return err
}
