package course

import (
	"context"
	"database/sql"

	"coremd.cloud/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. Subscribers live in a join
// table and are aggregated on read.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const courseColumns = `id, instructor_id, title, description, display_picture, price, fee_type, published, created_at, updated_at`

func (s *PGStore) CreateCourse(ctx context.Context, c *Course) error {
	if c.ID == "" {
		c.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into courses(id, instructor_id, title, description, display_picture, price, fee_type, published)
		 values($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.InstructorID, c.Title, c.Description, c.DisplayPicture, c.Price, string(c.FeeType), c.Published,
	)
	return err
}

func (s *PGStore) scanCourse(ctx context.Context, row interface{ Scan(...any) error }) (*Course, error) {
	var c Course
	if err := row.Scan(&c.ID, &c.InstructorID, &c.Title, &c.Description, &c.DisplayPicture,
		&c.Price, &c.FeeType, &c.Published, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	subs, err := s.subscribers(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Subscribers = subs
	return &c, nil
}

func (s *PGStore) subscribers(ctx context.Context, courseID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`select user_id from course_subscribers where course_id=$1 order by created_at`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		subs = append(subs, id)
	}
	return subs, rows.Err()
}

func (s *PGStore) FindCourse(ctx context.Context, id string) (*Course, error) {
	return s.scanCourse(ctx, s.db.QueryRowContext(ctx,
		`select `+courseColumns+` from courses where id=$1`, id))
}

func (s *PGStore) ListCourses(ctx context.Context) ([]*Course, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+courseColumns+` from courses order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []*Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.InstructorID, &c.Title, &c.Description, &c.DisplayPicture,
			&c.Price, &c.FeeType, &c.Published, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, c := range courses {
		subs, err := s.subscribers(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		c.Subscribers = subs
	}
	return courses, nil
}

func (s *PGStore) UpdateCourse(ctx context.Context, c *Course) error {
	res, err := s.db.ExecContext(ctx,
		`update courses set title=$2, description=$3, display_picture=$4, price=$5, fee_type=$6, published=$7, updated_at=now()
		 where id=$1`,
		c.ID, c.Title, c.Description, c.DisplayPicture, c.Price, string(c.FeeType), c.Published,
	)
	if err != nil {
		return err
	}
	return requireRow(res, ErrNotFound)
}

func (s *PGStore) DeleteCourse(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from courses where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrNotFound)
}

func (s *PGStore) AddSubscriber(ctx context.Context, courseID, userID string) error {
	// on conflict do nothing: double subscribe is a no-op.
	_, err := s.db.ExecContext(ctx,
		`insert into course_subscribers(course_id, user_id) values($1,$2) on conflict do nothing`,
		courseID, userID,
	)
	return err
}

// Modules --------------------------------------------------------------------

const moduleColumns = `id, course_id, title, description, is_active, created_at, updated_at`

func (s *PGStore) CreateModule(ctx context.Context, m *Module) error {
	if m.ID == "" {
		m.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into course_modules(id, course_id, title, description, is_active) values($1,$2,$3,$4,$5)`,
		m.ID, m.CourseID, m.Title, m.Description, m.IsActive,
	)
	return err
}

func scanModule(row interface{ Scan(...any) error }) (*Module, error) {
	var m Module
	if err := row.Scan(&m.ID, &m.CourseID, &m.Title, &m.Description, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrModuleNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *PGStore) FindModule(ctx context.Context, id string) (*Module, error) {
	return scanModule(s.db.QueryRowContext(ctx,
		`select `+moduleColumns+` from course_modules where id=$1`, id))
}

func (s *PGStore) ListModules(ctx context.Context, courseID string) ([]*Module, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+moduleColumns+` from course_modules where course_id=$1 order by created_at`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var modules []*Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

func (s *PGStore) UpdateModule(ctx context.Context, m *Module) error {
	res, err := s.db.ExecContext(ctx,
		`update course_modules set title=$2, description=$3, is_active=$4, updated_at=now() where id=$1`,
		m.ID, m.Title, m.Description, m.IsActive,
	)
	if err != nil {
		return err
	}
	return requireRow(res, ErrModuleNotFound)
}

func (s *PGStore) DeleteModule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from course_modules where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrModuleNotFound)
}

func (s *PGStore) FindModuleWithInstructor(ctx context.Context, id string) (*ModuleWithInstructor, error) {
	row := s.db.QueryRowContext(ctx,
		`select m.id, m.course_id, m.title, m.description, m.is_active, m.created_at, m.updated_at,
		        c.title, c.instructor_id
		 from course_modules m join courses c on c.id = m.course_id
		 where m.id=$1`, id)
	var out ModuleWithInstructor
	if err := row.Scan(&out.ID, &out.CourseID, &out.Title, &out.Description, &out.IsActive,
		&out.CreatedAt, &out.UpdatedAt, &out.CourseTitle, &out.InstructorID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrModuleNotFound
		}
		return nil, err
	}
	return &out, nil
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
