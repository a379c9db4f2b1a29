package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"synergize/internal/models"
)

// Sentinel errors returned by store operations. Handlers map these onto
// HTTP statuses with errors.Is.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrNotOwner        = errors.New("caller does not own the project")
	ErrDuplicateEmail  = errors.New("email already registered")
)

// Store wraps access to the SQLite database and exposes high level helpers.
// All authority rules (ownership checks, cascade semantics) live here so
// every transport sees the same behavior.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            full_name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            avatar_url TEXT,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS projects (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            owner_id INTEGER NOT NULL,
            start_date DATETIME,
            end_date DATETIME,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(owner_id) REFERENCES users(id)
        );`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            title TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'TODO',
            priority TEXT NOT NULL DEFAULT 'MEDIUM',
            due_date DATETIME,
            assignee_id INTEGER,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(project_id) REFERENCES projects(id),
            FOREIGN KEY(assignee_id) REFERENCES users(id)
        );`,
		`CREATE TABLE IF NOT EXISTS memberships (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            user_id INTEGER NOT NULL,
            UNIQUE(project_id, user_id),
            FOREIGN KEY(project_id) REFERENCES projects(id),
            FOREIGN KEY(user_id) REFERENCES users(id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_memberships_project ON memberships(project_id);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// CreateUser persists a new account. The password must already be hashed.
func (s *Store) CreateUser(ctx context.Context, fullName, email, passwordHash string) (models.User, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO users(full_name, email, password_hash) VALUES(?, ?, ?)`,
		strings.TrimSpace(fullName), strings.TrimSpace(email), passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("user id: %w", err)
	}
	return s.GetUser(ctx, id)
}

// GetUser fetches a single user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, password_hash, avatar_url, created_at FROM users WHERE id = ?`, id))
}

// GetUserByEmail fetches a single user by unique email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, password_hash, avatar_url, created_at FROM users WHERE email = ?`, strings.TrimSpace(email)))
}

func scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	var avatar sql.NullString
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &avatar, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	if avatar.Valid {
		u.AvatarURL = &avatar.String
	}
	return u, nil
}

// UpdateUserProfile replaces full name, email and avatar wholesale. Email
// uniqueness is still enforced by the schema; a collision surfaces as a
// plain error rather than ErrDuplicateEmail, matching the profile flow.
func (s *Store) UpdateUserProfile(ctx context.Context, id int64, fullName, email string, avatarURL *string) (models.User, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET full_name = ?, email = ?, avatar_url = ? WHERE id = ?`,
		strings.TrimSpace(fullName), strings.TrimSpace(email), avatarURL, id)
	if err != nil {
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.User{}, err
	}
	if affected == 0 {
		return models.User{}, ErrUserNotFound
	}
	return s.GetUser(ctx, id)
}

// UpdateUserPassword stores a new password hash for the user.
func (s *Store) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListProjects returns every project owned by the given user, newest first,
// with task and member collections embedded.
func (s *Store) ListProjects(ctx context.Context, ownerID int64) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, owner_id, start_date, end_date, created_at
        FROM projects WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range projects {
		if err := s.attachRelations(ctx, &projects[i]); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

func (s *Store) attachRelations(ctx context.Context, p *models.Project) error {
	tasks, err := s.ListTasks(ctx, p.ID)
	if err != nil {
		return err
	}
	p.Tasks = tasks

	members, err := s.listMembers(ctx, p.ID)
	if err != nil {
		return err
	}
	p.Members = members
	return nil
}

func (s *Store) listMembers(ctx context.Context, projectID int64) ([]models.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT m.id, m.project_id, m.user_id,
            u.id, u.full_name, u.email, u.avatar_url, u.created_at
        FROM memberships m JOIN users u ON u.id = m.user_id
        WHERE m.project_id = ? ORDER BY m.id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []models.Membership{}
	for rows.Next() {
		var m models.Membership
		var u models.User
		var avatar sql.NullString
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.UserID,
			&u.ID, &u.FullName, &u.Email, &avatar, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		if avatar.Valid {
			u.AvatarURL = &avatar.String
		}
		m.User = &u
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddMember records a collaborator on a project. No HTTP route mutates the
// relation; this exists for seeding and for the embedded member listing.
func (s *Store) AddMember(ctx context.Context, projectID, userID int64) (models.Membership, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO memberships(project_id, user_id) VALUES(?, ?)`, projectID, userID)
	if err != nil {
		return models.Membership{}, fmt.Errorf("insert membership: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Membership{}, fmt.Errorf("membership id: %w", err)
	}
	return models.Membership{ID: id, ProjectID: projectID, UserID: userID}, nil
}

// CreateProject persists a new project owned by the caller. Dates are
// stored as given; end before start is accepted.
func (s *Store) CreateProject(ctx context.Context, ownerID int64, title string, startDate, endDate *time.Time) (models.Project, error) {
	if strings.TrimSpace(title) == "" {
		return models.Project{}, fmt.Errorf("project title must not be empty")
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO projects(title, owner_id, start_date, end_date) VALUES(?, ?, ?, ?)`,
		strings.TrimSpace(title), ownerID, startDate, endDate)
	if err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Project{}, fmt.Errorf("project id: %w", err)
	}

	project, err := s.GetProject(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	project.Tasks = []models.Task{}
	project.Members = []models.Membership{}
	return project, nil
}

// GetProject fetches a single project by id without relations.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, title, owner_id, start_date, end_date, created_at FROM projects WHERE id = ?`, id)
	var p models.Project
	var start, end sql.NullTime
	err := row.Scan(&p.ID, &p.Title, &p.OwnerID, &start, &end, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, ErrProjectNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	if start.Valid {
		p.StartDate = &start.Time
	}
	if end.Valid {
		p.EndDate = &end.Time
	}
	return p, nil
}

func scanProject(rows *sql.Rows) (models.Project, error) {
	var p models.Project
	var start, end sql.NullTime
	if err := rows.Scan(&p.ID, &p.Title, &p.OwnerID, &start, &end, &p.CreatedAt); err != nil {
		return models.Project{}, fmt.Errorf("scan project: %w", err)
	}
	if start.Valid {
		p.StartDate = &start.Time
	}
	if end.Valid {
		p.EndDate = &end.Time
	}
	return p, nil
}

// UpdateProject replaces title and both dates wholesale. Only the owner may
// update; a nil date clears the column. A blank title is rejected rather
// than written, so the replace can never erase the title.
func (s *Store) UpdateProject(ctx context.Context, callerID, id int64, title string, startDate, endDate *time.Time) (models.Project, error) {
	if strings.TrimSpace(title) == "" {
		return models.Project{}, fmt.Errorf("project title must not be empty")
	}

	current, err := s.GetProject(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	if current.OwnerID != callerID {
		return models.Project{}, ErrNotOwner
	}

	_, err = s.db.ExecContext(ctx, `UPDATE projects SET title = ?, start_date = ?, end_date = ? WHERE id = ?`,
		strings.TrimSpace(title), startDate, endDate, id)
	if err != nil {
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}

	updated, err := s.GetProject(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	tasks, err := s.ListTasks(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	updated.Tasks = tasks
	return updated, nil
}

// DeleteProject removes a project and every task it owns inside one
// transaction. Either both deletions land or neither does.
func (s *Store) DeleteProject(ctx context.Context, callerID, id int64) error {
	current, err := s.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if current.OwnerID != callerID {
		return ErrNotOwner
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memberships WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("delete memberships: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return tx.Commit()
}

// ListTasks returns tasks for the given project.
func (s *Store) ListTasks(ctx context.Context, projectID int64) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, project_id, title, status, priority, due_date, assignee_id, created_at, updated_at
        FROM tasks WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		var due sql.NullTime
		var assignee sql.NullInt64
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.Priority, &due, &assignee, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if due.Valid {
			t.DueDate = &due.Time
		}
		if assignee.Valid {
			t.AssigneeID = &assignee.Int64
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateTask inserts a new task. Only the project owner may create tasks;
// the creator becomes the assignee.
func (s *Store) CreateTask(ctx context.Context, callerID, projectID int64, title, priority string, dueDate *time.Time) (models.Task, error) {
	if strings.TrimSpace(title) == "" {
		return models.Task{}, fmt.Errorf("task title must not be empty")
	}

	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return models.Task{}, err
	}
	if project.OwnerID != callerID {
		return models.Task{}, ErrNotOwner
	}

	if _, ok := models.ValidTaskPriorities[priority]; !ok {
		priority = models.PriorityMedium
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks(project_id, title, status, priority, due_date, assignee_id) VALUES(?, ?, ?, ?, ?, ?)`,
		projectID, strings.TrimSpace(title), models.StatusTodo, priority, dueDate, callerID)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, fmt.Errorf("task id: %w", err)
	}
	return s.GetTask(ctx, id)
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	var t models.Task
	var due sql.NullTime
	var assignee sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT id, project_id, title, status, priority, due_date, assignee_id, created_at, updated_at
        FROM tasks WHERE id = ?`, id).
		Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.Priority, &due, &assignee, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	if due.Valid {
		t.DueDate = &due.Time
	}
	if assignee.Valid {
		t.AssigneeID = &assignee.Int64
	}
	return t, nil
}

// TaskChanges carries a partial task update. Nil fields stay untouched, so
// a status-only drag update never blanks out title, priority or assignee.
type TaskChanges struct {
	Title      *string
	Status     *string
	Priority   *string
	DueDate    *time.Time
	AssigneeID *int64
}

// UpdateTask applies a partial update to a task. The project reference is
// immutable; no ownership check happens here, matching the exposed
// task-update contract.
func (s *Store) UpdateTask(ctx context.Context, id int64, changes TaskChanges) (models.Task, error) {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}

	title := current.Title
	status := current.Status
	priority := current.Priority
	dueDate := current.DueDate
	assigneeID := current.AssigneeID

	if changes.Title != nil && strings.TrimSpace(*changes.Title) != "" {
		title = strings.TrimSpace(*changes.Title)
	}
	if changes.Status != nil {
		if _, valid := models.ValidTaskStatuses[*changes.Status]; valid {
			status = *changes.Status
		}
	}
	if changes.Priority != nil {
		if _, valid := models.ValidTaskPriorities[*changes.Priority]; valid {
			priority = *changes.Priority
		}
	}
	if changes.DueDate != nil {
		dueDate = changes.DueDate
	}
	if changes.AssigneeID != nil {
		assigneeID = changes.AssigneeID
	}

	_, err = s.db.ExecContext(ctx, `UPDATE tasks SET title = ?, status = ?, priority = ?, due_date = ?, assignee_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, status, priority, dueDate, assigneeID, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	return s.GetTask(ctx, id)
}
