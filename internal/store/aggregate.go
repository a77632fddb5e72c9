package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"pjimarket/internal/types"
)

// prefixClause builds an OR chain of LIKE conditions over the given code
// prefixes, appending the bind values to args. The returned clause is
// parenthesized; an empty prefix list yields a never-matching clause.
func prefixClause(column string, prefixes []string, args *[]any) string {
	if len(prefixes) == 0 {
		return "(1 = 0)"
	}
	var parts []string
	for _, p := range prefixes {
		*args = append(*args, p+"%")
		parts = append(parts, fmt.Sprintf("%s LIKE $%d", column, len(*args)))
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// TotalsByYear sums procedure counts per year for each OPS prefix group,
// net of the exclusion prefixes. The per-group sums add up to Total by
// construction; Excluded reports the volume the exclusion prefixes matched
// on their own.
func (s *Store) TotalsByYear(ctx context.Context, years types.YearSpan, groups map[string][]string, exclusions []string) ([]types.YearTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byYear := make(map[int]*types.YearTotal)
	for y := years.From; y <= years.To; y++ {
		byYear[y] = &types.YearTotal{Year: y, Groups: make(map[string]int)}
	}

	groupNames := make([]string, 0, len(groups))
	for name := range groups {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	for _, name := range groupNames {
		var args []any
		args = append(args, years.From, years.To)
		clause := prefixClause("code", groups[name], &args)
		excl := prefixClause("code", exclusions, &args)
		query := fmt.Sprintf(
			`SELECT year, COALESCE(SUM(cnt), 0)
			 FROM procedures
			 WHERE year >= $1 AND year <= $2 AND %s AND NOT %s
			 GROUP BY year`, clause, excl)

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("totals query for group %s failed: %w", name, err)
		}
		for rows.Next() {
			var year, sum int
			if err := rows.Scan(&year, &sum); err != nil {
				rows.Close()
				return nil, fmt.Errorf("totals scan for group %s failed: %w", name, err)
			}
			if yt, ok := byYear[year]; ok {
				yt.Groups[name] = sum
				yt.Total += sum
			}
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("totals rows for group %s: %w", name, err)
		}
	}

	// Excluded volume per year, reported alongside the net totals.
	var args []any
	args = append(args, years.From, years.To)
	excl := prefixClause("code", exclusions, &args)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT year, COALESCE(SUM(cnt), 0)
		 FROM procedures
		 WHERE year >= $1 AND year <= $2 AND %s
		 GROUP BY year`, excl), args...)
	if err != nil {
		return nil, fmt.Errorf("exclusion totals query failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var year, sum int
		if err := rows.Scan(&year, &sum); err != nil {
			return nil, fmt.Errorf("exclusion totals scan failed: %w", err)
		}
		if yt, ok := byYear[year]; ok {
			yt.Excluded = sum
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("exclusion totals rows: %w", err)
	}

	out := make([]types.YearTotal, 0, len(byYear))
	for y := years.From; y <= years.To; y++ {
		out = append(out, *byYear[y])
	}
	return out, nil
}

// HospitalVolumes returns the per-hospital net primary volume over the
// year span, with per-year breakdown, department match, and whether any
// free-text fields exist for the adequacy scoring.
func (s *Store) HospitalVolumes(ctx context.Context, years types.YearSpan, groups map[string][]string, exclusions, orthoDepts []string) ([]types.HospitalVolume, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var prefixes []string
	for _, ps := range groups {
		prefixes = append(prefixes, ps...)
	}
	sort.Strings(prefixes)

	var args []any
	args = append(args, years.From, years.To)
	clause := prefixClause("p.code", prefixes, &args)
	excl := prefixClause("p.code", exclusions, &args)

	query := fmt.Sprintf(
		`SELECT h.ik, h.name, h.state, h.hospital_type, p.year, COALESCE(SUM(p.cnt), 0)
		 FROM hospitals h
		 JOIN procedures p ON p.ik = h.ik
		 WHERE p.year >= $1 AND p.year <= $2 AND %s AND NOT %s
		 GROUP BY h.ik, h.name, h.state, h.hospital_type, p.year
		 ORDER BY h.ik, p.year`, clause, excl)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("hospital volumes query failed: %w", err)
	}
	defer rows.Close()

	byIK := make(map[string]*types.HospitalVolume)
	var order []string
	for rows.Next() {
		var ik, name, state, htype string
		var year, sum int
		if err := rows.Scan(&ik, &name, &state, &htype, &year, &sum); err != nil {
			return nil, fmt.Errorf("hospital volumes scan failed: %w", err)
		}
		hv, ok := byIK[ik]
		if !ok {
			hv = &types.HospitalVolume{
				IK:      ik,
				Name:    name,
				State:   state,
				Type:    types.HospitalType(htype),
				PerYear: make(map[int]int),
			}
			byIK[ik] = hv
			order = append(order, ik)
		}
		hv.PerYear[year] += sum
		hv.Volume += sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hospital volumes rows: %w", err)
	}

	if err := s.markDepartmentMatches(ctx, byIK, orthoDepts); err != nil {
		return nil, err
	}
	if err := s.markTextPresence(ctx, byIK, years); err != nil {
		return nil, err
	}

	out := make([]types.HospitalVolume, 0, len(order))
	for _, ik := range order {
		out = append(out, *byIK[ik])
	}
	return out, nil
}

// markDepartmentMatches flags hospitals carrying one of the orthopaedics or
// trauma department codes.
func (s *Store) markDepartmentMatches(ctx context.Context, byIK map[string]*types.HospitalVolume, orthoDepts []string) error {
	if len(orthoDepts) == 0 || len(byIK) == 0 {
		return nil
	}
	var args []any
	var parts []string
	for _, code := range orthoDepts {
		args = append(args, code)
		parts = append(parts, fmt.Sprintf("$%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT DISTINCT ik FROM departments WHERE code IN (%s)`, strings.Join(parts, ", "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("department match query failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ik string
		if err := rows.Scan(&ik); err != nil {
			return fmt.Errorf("department match scan failed: %w", err)
		}
		if hv, ok := byIK[ik]; ok {
			hv.DeptHit = true
		}
	}
	return rows.Err()
}

// markTextPresence flags hospitals that have any free-text fields in the
// year span, so missing AAI inputs can be reported as a limitation.
func (s *Store) markTextPresence(ctx context.Context, byIK map[string]*types.HospitalVolume, years types.YearSpan) error {
	if len(byIK) == 0 {
		return nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT ik FROM text_signals WHERE year >= $1 AND year <= $2`,
		years.From, years.To)
	if err != nil {
		return fmt.Errorf("text presence query failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ik string
		if err := rows.Scan(&ik); err != nil {
			return fmt.Errorf("text presence scan failed: %w", err)
		}
		if hv, ok := byIK[ik]; ok {
			hv.TextSeen = true
		}
	}
	return rows.Err()
}

// DiagnosisTotals sums diagnosis counts per year over the infection ICD
// prefixes (the observed PJI load).
func (s *Store) DiagnosisTotals(ctx context.Context, years types.YearSpan, icdPrefixes []string) (map[int]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var args []any
	args = append(args, years.From, years.To)
	clause := prefixClause("code", icdPrefixes, &args)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT year, COALESCE(SUM(cnt), 0)
		 FROM diagnoses
		 WHERE year >= $1 AND year <= $2 AND %s
		 GROUP BY year`, clause), args...)
	if err != nil {
		return nil, fmt.Errorf("diagnosis totals query failed: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var year, sum int
		if err := rows.Scan(&year, &sum); err != nil {
			return nil, fmt.Errorf("diagnosis totals scan failed: %w", err)
		}
		out[year] = sum
	}
	return out, rows.Err()
}

// TextSignals returns all free-text rows in the year span grouped by
// hospital. Concatenation happens here rather than in SQL to stay inside
// the dialect subset shared by sqlite and postgres.
func (s *Store) TextSignals(ctx context.Context, years types.YearSpan) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT ik, content FROM text_signals WHERE year >= $1 AND year <= $2 ORDER BY ik, year, field`,
		years.From, years.To)
	if err != nil {
		return nil, fmt.Errorf("text signals query failed: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var ik, content string
		if err := rows.Scan(&ik, &content); err != nil {
			return nil, fmt.Errorf("text signals scan failed: %w", err)
		}
		if existing, ok := out[ik]; ok {
			out[ik] = existing + "\n" + content
		} else {
			out[ik] = content
		}
	}
	return out, rows.Err()
}

// RegionVolumes aggregates net primary volume and hospital counts per
// Bundesland. Share computation is left to the analysis layer, which owns
// the division-by-zero guard.
func (s *Store) RegionVolumes(ctx context.Context, years types.YearSpan, groups map[string][]string, exclusions []string) ([]types.RegionRollup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var prefixes []string
	for _, ps := range groups {
		prefixes = append(prefixes, ps...)
	}
	sort.Strings(prefixes)

	var args []any
	args = append(args, years.From, years.To)
	clause := prefixClause("p.code", prefixes, &args)
	excl := prefixClause("p.code", exclusions, &args)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT h.state, COUNT(DISTINCT h.ik), COALESCE(SUM(p.cnt), 0)
		 FROM hospitals h
		 JOIN procedures p ON p.ik = h.ik
		 WHERE p.year >= $1 AND p.year <= $2 AND %s AND NOT %s
		 GROUP BY h.state
		 ORDER BY h.state`, clause, excl), args...)
	if err != nil {
		return nil, fmt.Errorf("region volumes query failed: %w", err)
	}
	defer rows.Close()

	var out []types.RegionRollup
	for rows.Next() {
		var r types.RegionRollup
		if err := rows.Scan(&r.State, &r.Hospitals, &r.Volume); err != nil {
			return nil, fmt.Errorf("region volumes scan failed: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
