package sqlite

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type contentRepo struct {
	db dbtx
}

var (
	sliderColumns   = []string{"id", "title", "subtitle", "description", "image_url", "top_button_text", "top_button_url", "sort", "is_active"}
	featureColumns  = []string{"id", "title", "description", "icon_class", "sort", "is_active"}
	bannerColumns   = []string{"id", "title", "subtitle", "badge_text", "image_url", "link_url", "button_text", "button_style", "banner_type", "page_type", "background_color", "sort", "is_active"}
	categoryColumns = []string{"id", "name", "icon_class", "category_key", "background_gradient", "icon_color", "sort", "is_active"}
)

// save 按 id 决定插入或更新，返回新行 id。
func (r *contentRepo) save(ctx context.Context, table string, id int64, values map[string]any) (int64, error) {
	if id > 0 {
		query, args, err := builder.Update(table).SetMap(values).Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return 0, err
		}
		res, err := r.db.ExecContext(ctx, query, args...)
		if isUniqueViolation(err) {
			return 0, repository.ErrConflict
		}
		return id, requireAffected(res, err)
	}
	query, args, err := builder.Insert(table).SetMap(values).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if isUniqueViolation(err) {
		return 0, repository.ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}
	return res.LastInsertId()
}

func (r *contentRepo) delete(ctx context.Context, table string, id int64) error {
	query, args, err := builder.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	return requireAffected(res, err)
}

func activeWhere(activeOnly bool) sq.Sqlizer {
	if activeOnly {
		return sq.Eq{"is_active": 1}
	}
	return sq.And{}
}

func (r *contentRepo) ListSliders(ctx context.Context, activeOnly bool) ([]repository.Slider, error) {
	return r.listSliders(ctx, builder.Select(sliderColumns...).From("sliders").Where(activeWhere(activeOnly)).OrderBy("sort", "id DESC"))
}

func (r *contentRepo) FindSlider(ctx context.Context, id int64) (*repository.Slider, error) {
	list, err := r.listSliders(ctx, builder.Select(sliderColumns...).From("sliders").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, repository.ErrNotFound
	}
	return &list[0], nil
}

func (r *contentRepo) listSliders(ctx context.Context, q sq.SelectBuilder) ([]repository.Slider, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []repository.Slider{}
	for rows.Next() {
		var (
			s      repository.Slider
			active int
		)
		if err := rows.Scan(&s.ID, &s.Title, &s.Subtitle, &s.Description, &s.ImageURL, &s.TopButtonText, &s.TopButtonURL, &s.Sort, &active); err != nil {
			return nil, err
		}
		s.IsActive = active == 1
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *contentRepo) SaveSlider(ctx context.Context, s *repository.Slider) (*repository.Slider, error) {
	id, err := r.save(ctx, "sliders", s.ID, map[string]any{
		"title":           s.Title,
		"subtitle":        s.Subtitle,
		"description":     s.Description,
		"image_url":       s.ImageURL,
		"top_button_text": s.TopButtonText,
		"top_button_url":  s.TopButtonURL,
		"sort":            s.Sort,
		"is_active":       boolToInt(s.IsActive),
	})
	if err != nil {
		return nil, err
	}
	s.ID = id
	return s, nil
}

func (r *contentRepo) DeleteSlider(ctx context.Context, id int64) error {
	return r.delete(ctx, "sliders", id)
}

func (r *contentRepo) ListFeatures(ctx context.Context, activeOnly bool) ([]repository.Feature, error) {
	return r.listFeatures(ctx, builder.Select(featureColumns...).From("features").Where(activeWhere(activeOnly)).OrderBy("sort", "id"))
}

func (r *contentRepo) FindFeature(ctx context.Context, id int64) (*repository.Feature, error) {
	list, err := r.listFeatures(ctx, builder.Select(featureColumns...).From("features").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, repository.ErrNotFound
	}
	return &list[0], nil
}

func (r *contentRepo) listFeatures(ctx context.Context, q sq.SelectBuilder) ([]repository.Feature, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []repository.Feature{}
	for rows.Next() {
		var (
			f      repository.Feature
			active int
		)
		if err := rows.Scan(&f.ID, &f.Title, &f.Description, &f.IconClass, &f.Sort, &active); err != nil {
			return nil, err
		}
		f.IsActive = active == 1
		list = append(list, f)
	}
	return list, rows.Err()
}

func (r *contentRepo) SaveFeature(ctx context.Context, f *repository.Feature) (*repository.Feature, error) {
	id, err := r.save(ctx, "features", f.ID, map[string]any{
		"title":       f.Title,
		"description": f.Description,
		"icon_class":  f.IconClass,
		"sort":        f.Sort,
		"is_active":   boolToInt(f.IsActive),
	})
	if err != nil {
		return nil, err
	}
	f.ID = id
	return f, nil
}

func (r *contentRepo) DeleteFeature(ctx context.Context, id int64) error {
	return r.delete(ctx, "features", id)
}

func (r *contentRepo) ListBanners(ctx context.Context, filter repository.BannerFilter) ([]repository.Banner, error) {
	where := sq.And{activeWhere(filter.ActiveOnly)}
	if filter.Page != "" {
		where = append(where, sq.Eq{"page_type": []string{filter.Page, repository.BannerPageBoth}})
	}
	return r.listBanners(ctx, builder.Select(bannerColumns...).From("banners").Where(where).OrderBy("sort", "id"))
}

func (r *contentRepo) FindBanner(ctx context.Context, id int64) (*repository.Banner, error) {
	list, err := r.listBanners(ctx, builder.Select(bannerColumns...).From("banners").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, repository.ErrNotFound
	}
	return &list[0], nil
}

func (r *contentRepo) listBanners(ctx context.Context, q sq.SelectBuilder) ([]repository.Banner, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []repository.Banner{}
	for rows.Next() {
		var (
			b      repository.Banner
			active int
		)
		if err := rows.Scan(&b.ID, &b.Title, &b.Subtitle, &b.BadgeText, &b.ImageURL, &b.LinkURL, &b.ButtonText, &b.ButtonStyle,
			&b.BannerType, &b.PageType, &b.BackgroundColor, &b.Sort, &active); err != nil {
			return nil, err
		}
		b.IsActive = active == 1
		list = append(list, b)
	}
	return list, rows.Err()
}

func (r *contentRepo) SaveBanner(ctx context.Context, b *repository.Banner) (*repository.Banner, error) {
	id, err := r.save(ctx, "banners", b.ID, map[string]any{
		"title":            b.Title,
		"subtitle":         b.Subtitle,
		"badge_text":       b.BadgeText,
		"image_url":        b.ImageURL,
		"link_url":         b.LinkURL,
		"button_text":      b.ButtonText,
		"button_style":     b.ButtonStyle,
		"banner_type":      b.BannerType,
		"page_type":        b.PageType,
		"background_color": b.BackgroundColor,
		"sort":             b.Sort,
		"is_active":        boolToInt(b.IsActive),
	})
	if err != nil {
		return nil, err
	}
	b.ID = id
	return b, nil
}

func (r *contentRepo) DeleteBanner(ctx context.Context, id int64) error {
	return r.delete(ctx, "banners", id)
}

func (r *contentRepo) ListCategoryIcons(ctx context.Context, activeOnly bool) ([]repository.CategoryIcon, error) {
	return r.listCategoryIcons(ctx, builder.Select(categoryColumns...).From("category_icons").Where(activeWhere(activeOnly)).OrderBy("sort", "id"))
}

func (r *contentRepo) FindCategoryIcon(ctx context.Context, id int64) (*repository.CategoryIcon, error) {
	list, err := r.listCategoryIcons(ctx, builder.Select(categoryColumns...).From("category_icons").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, repository.ErrNotFound
	}
	return &list[0], nil
}

func (r *contentRepo) listCategoryIcons(ctx context.Context, q sq.SelectBuilder) ([]repository.CategoryIcon, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []repository.CategoryIcon{}
	for rows.Next() {
		var (
			c      repository.CategoryIcon
			active int
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.IconClass, &c.CategoryKey, &c.BackgroundGradient, &c.IconColor, &c.Sort, &active); err != nil {
			return nil, err
		}
		c.IsActive = active == 1
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *contentRepo) SaveCategoryIcon(ctx context.Context, c *repository.CategoryIcon) (*repository.CategoryIcon, error) {
	id, err := r.save(ctx, "category_icons", c.ID, map[string]any{
		"name":                c.Name,
		"icon_class":          c.IconClass,
		"category_key":        c.CategoryKey,
		"background_gradient": c.BackgroundGradient,
		"icon_color":          c.IconColor,
		"sort":                c.Sort,
		"is_active":           boolToInt(c.IsActive),
	})
	if err != nil {
		return nil, err
	}
	c.ID = id
	return c, nil
}

func (r *contentRepo) DeleteCategoryIcon(ctx context.Context, id int64) error {
	return r.delete(ctx, "category_icons", id)
}
