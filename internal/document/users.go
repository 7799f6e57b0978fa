package document

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/techresidents/indexsvc/internal/adapter/repo/postgres"
	"github.com/techresidents/indexsvc/internal/domain"
)

// developerTenantID scopes user documents to the developer tenant.
const developerTenantID = 1

// UserGenerator builds user documents: the base profile plus skills,
// preference lists, and chat history, with a relevance score derived from
// profile completeness.
type UserGenerator struct {
	pool postgres.PgxPool
}

// Generate streams one document per matching user.
func (g *UserGenerator) Generate(ctx context.Context, keys []string) (domain.DocumentIterator, error) {
	ids, err := parseKeys(keys)
	if err != nil {
		return nil, err
	}
	q := `SELECT u.id, u.date_joined, dp.location, dp.actively_seeking, dp.developer_since
		FROM users u
		JOIN developer_profiles dp ON dp.user_id = u.id
		WHERE u.tenant_id = $1 AND (cardinality($2::bigint[]) = 0 OR u.id = ANY($2::bigint[]))
		ORDER BY u.id`
	rows, err := g.pool.Query(ctx, q, developerTenantID, ids)
	if err != nil {
		return nil, generatorErr("docgen.users", err)
	}
	return &userIterator{pool: g.pool, rows: rows}, nil
}

type userIterator struct {
	pool postgres.PgxPool
	rows pgx.Rows
	key  string
	doc  domain.Document
	err  error
}

func (it *userIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			it.err = generatorErr("docgen.users", err)
		}
		return false
	}
	var (
		id             int64
		dateJoined     time.Time
		location       *string
		activelySeek   bool
		developerSince *time.Time
	)
	if err := it.rows.Scan(&id, &dateJoined, &location, &activelySeek, &developerSince); err != nil {
		it.err = generatorErr("docgen.users_scan", err)
		return false
	}

	skills, err := it.querySkills(ctx, id)
	if err != nil {
		it.err = err
		return false
	}
	locationPrefs, err := it.queryLocationPrefs(ctx, id)
	if err != nil {
		it.err = err
		return false
	}
	technologyPrefs, err := it.queryTechnologyPrefs(ctx, id)
	if err != nil {
		it.err = err
		return false
	}
	positionPrefs, err := it.queryPositionPrefs(ctx, id)
	if err != nil {
		it.err = err
		return false
	}
	chats, err := it.queryChats(ctx, id)
	if err != nil {
		it.err = err
		return false
	}

	it.key = keyString(id)
	it.doc = domain.Document{
		"id":               id,
		"joined":           dateJoined,
		"location":         location,
		"actively_seeking": activelySeek,
		"skills":           skills,
		"technology_prefs": technologyPrefs,
		"location_prefs":   locationPrefs,
		"position_prefs":   positionPrefs,
		"chats":            chats,
		"yrs_experience":   yrsExperience(developerSince, skills),
		"score":            score(activelySeek, skills, locationPrefs, technologyPrefs, positionPrefs, chats),
	}
	return true
}

func (it *userIterator) Document() (string, domain.Document) { return it.key, it.doc }
func (it *userIterator) Err() error                          { return it.err }
func (it *userIterator) Close()                              { it.rows.Close() }

func (it *userIterator) querySkills(ctx context.Context, userID int64) ([]domain.Document, error) {
	q := `SELECT s.id, t.name, s.yrs_experience, t.id, et.id, et.name
		FROM skills s
		JOIN technologies t ON t.id = s.technology_id
		JOIN expertise_types et ON et.id = s.expertise_type_id
		WHERE s.user_id = $1`
	rows, err := it.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, generatorErr("docgen.users_skills", err)
	}
	defer rows.Close()
	var out []domain.Document
	for rows.Next() {
		var (
			id, technologyID, expertiseTypeID int64
			name, expertiseType               string
			yrs                               int
		)
		if err := rows.Scan(&id, &name, &yrs, &technologyID, &expertiseTypeID, &expertiseType); err != nil {
			return nil, generatorErr("docgen.users_skills", err)
		}
		out = append(out, domain.Document{
			"id":                id,
			"name":              name,
			"yrs_experience":    yrs,
			"technology_id":     technologyID,
			"expertise_type_id": expertiseTypeID,
			"expertise_type":    expertiseType,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, generatorErr("docgen.users_skills", err)
	}
	return out, nil
}

func (it *userIterator) queryLocationPrefs(ctx context.Context, userID int64) ([]domain.Document, error) {
	q := `SELECT lp.id, l.id, l.region
		FROM job_location_prefs lp
		JOIN locations l ON l.id = lp.location_id
		WHERE lp.user_id = $1`
	rows, err := it.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, generatorErr("docgen.users_location_prefs", err)
	}
	defer rows.Close()
	var out []domain.Document
	for rows.Next() {
		var (
			id, locationID int64
			region         string
		)
		if err := rows.Scan(&id, &locationID, &region); err != nil {
			return nil, generatorErr("docgen.users_location_prefs", err)
		}
		out = append(out, domain.Document{"id": id, "location_id": locationID, "region": region})
	}
	if err := rows.Err(); err != nil {
		return nil, generatorErr("docgen.users_location_prefs", err)
	}
	return out, nil
}

func (it *userIterator) queryTechnologyPrefs(ctx context.Context, userID int64) ([]domain.Document, error) {
	q := `SELECT tp.id, t.name, t.id
		FROM job_technology_prefs tp
		JOIN technologies t ON t.id = tp.technology_id
		WHERE tp.user_id = $1`
	rows, err := it.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, generatorErr("docgen.users_technology_prefs", err)
	}
	defer rows.Close()
	var out []domain.Document
	for rows.Next() {
		var (
			id, technologyID int64
			name             string
		)
		if err := rows.Scan(&id, &name, &technologyID); err != nil {
			return nil, generatorErr("docgen.users_technology_prefs", err)
		}
		out = append(out, domain.Document{"id": id, "name": name, "technology_id": technologyID})
	}
	if err := rows.Err(); err != nil {
		return nil, generatorErr("docgen.users_technology_prefs", err)
	}
	return out, nil
}

func (it *userIterator) queryPositionPrefs(ctx context.Context, userID int64) ([]domain.Document, error) {
	q := `SELECT pp.id, pt.name, pt.id, pp.salary_start, pp.salary_end
		FROM job_position_type_prefs pp
		JOIN position_types pt ON pt.id = pp.position_type_id
		WHERE pp.user_id = $1`
	rows, err := it.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, generatorErr("docgen.users_position_prefs", err)
	}
	defer rows.Close()
	var out []domain.Document
	for rows.Next() {
		var (
			id, typeID             int64
			name                   string
			salaryStart, salaryEnd *int64
		)
		if err := rows.Scan(&id, &name, &typeID, &salaryStart, &salaryEnd); err != nil {
			return nil, generatorErr("docgen.users_position_prefs", err)
		}
		out = append(out, domain.Document{
			"id":           id,
			"type":         name,
			"type_id":      typeID,
			"salary_start": salaryStart,
			"salary_end":   salaryEnd,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, generatorErr("docgen.users_position_prefs", err)
	}
	return out, nil
}

func (it *userIterator) queryChats(ctx context.Context, userID int64) ([]domain.Document, error) {
	q := `SELECT c.id, c.topic_id, t.title
		FROM chat_reels cr
		JOIN chats c ON c.id = cr.chat_id
		JOIN topics t ON t.id = c.topic_id
		WHERE cr.user_id = $1`
	rows, err := it.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, generatorErr("docgen.users_chats", err)
	}
	defer rows.Close()
	var out []domain.Document
	for rows.Next() {
		var (
			id, topicID int64
			title       string
		)
		if err := rows.Scan(&id, &topicID, &title); err != nil {
			return nil, generatorErr("docgen.users_chats", err)
		}
		out = append(out, domain.Document{"id": id, "topic_id": topicID, "topic_title": title})
	}
	if err := rows.Err(); err != nil {
		return nil, generatorErr("docgen.users_chats", err)
	}
	return out, nil
}

// yrsExperience prefers the profile's developer_since year; absent that it
// falls back to the deepest single skill.
func yrsExperience(developerSince *time.Time, skills []domain.Document) int {
	if developerSince != nil {
		return time.Now().UTC().Year() - developerSince.Year()
	}
	yrs := 0
	for _, s := range skills {
		if v, ok := s["yrs_experience"].(int); ok && v > yrs {
			yrs = v
		}
	}
	return yrs
}

// score weights profile completeness. Base 1.0; actively seeking and chat
// history dominate.
func score(activelySeeking bool, skills, locationPrefs, technologyPrefs, positionPrefs, chats []domain.Document) float64 {
	s := 1.0
	if activelySeeking {
		s += 2
	}
	if len(skills) > 0 {
		s += 1
	}
	if len(chats) > 0 {
		s += 2
	}
	if len(locationPrefs) > 0 {
		s += 0.5
	}
	if len(technologyPrefs) > 0 {
		s += 0.5
	}
	if len(positionPrefs) > 0 {
		s += 0.5
	}
	return s
}
