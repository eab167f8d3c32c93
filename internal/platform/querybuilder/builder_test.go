package querybuilder

import (
	"testing"
	"time"
)

func TestSelectBuilder(t *testing.T) {
	from := time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC)
	to := from.Add(72 * time.Hour)
	query, args, err := Select("public_id", "team_a", "team_b").
		From("fixtures").
		Where(Eq("competition_id", "urc"), Between("kickoff_at", from, to), IsNull("deleted_at")).
		OrderBy("kickoff_at", "id").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT public_id, team_a, team_b FROM fixtures WHERE competition_id = $1 AND kickoff_at BETWEEN $2 AND $3 AND deleted_at IS NULL ORDER BY kickoff_at, id LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != "urc" || args[1] != from || args[2] != to {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("team_aliases").
		Columns("canonical_name", "alias").
		Values("Leinster", "Leinster Rugby").
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO team_aliases (canonical_name, alias) VALUES ($1, $2) RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "Leinster" || args[1] != "Leinster Rugby" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder_WriteIfAbsent(t *testing.T) {
	query, args, err := Update("fixtures").
		Set("result_winner", "Leinster").
		Set("result_margin", 6).
		SetExpr("updated_at", "NOW()").
		Where(Eq("public_id", "fx_1"), IsNull("result_margin")).
		Suffix("RETURNING public_id").
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE fixtures SET result_winner = $1, result_margin = $2, updated_at = NOW() WHERE public_id = $3 AND result_margin IS NULL RETURNING public_id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != "Leinster" || args[1] != 6 || args[2] != "fx_1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder_IsNotNull(t *testing.T) {
	query, _, err := Update("fixtures").
		SetExpr("scored_at", "?", "2026-10-24T19:00:00Z").
		Where(Eq("public_id", "fx_1"), IsNotNull("result_margin")).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE fixtures SET scored_at = $1 WHERE public_id = $2 AND result_margin IS NOT NULL"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
}

func TestInsertModel(t *testing.T) {
	type row struct {
		PublicID string `db:"public_id"`
		TeamA    string `db:"team_a"`
		Ignored  string `db:"-"`
		internal string
	}
	query, args, err := InsertModel("fixtures", row{PublicID: "fx_1", TeamA: "Leinster", internal: "x"}, "RETURNING id")
	if err != nil {
		t.Fatalf("build insert model query: %v", err)
	}
	wantQuery := "INSERT INTO fixtures (public_id, team_a) VALUES ($1, $2) RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder_ExprArgsNumberedInOrder(t *testing.T) {
	query, args, err := Update("predictions").
		Set("points", 5).
		SetExpr("scored_at", "COALESCE(scored_at, ?)", "2026-10-24T19:00:00Z").
		Where(Eq("public_id", "pr_1")).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE predictions SET points = $1, scored_at = COALESCE(scored_at, $2) WHERE public_id = $3"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[1] != "2026-10-24T19:00:00Z" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestBuilders_RejectIncompleteStatements(t *testing.T) {
	if _, _, err := Select().From("fixtures").ToSQL(); err == nil {
		t.Fatalf("expected error for select without columns")
	}
	if _, _, err := InsertInto("fixtures").Columns("a", "b").Values(1).ToSQL(); err == nil {
		t.Fatalf("expected error for short insert row")
	}
	if _, _, err := Update("fixtures").ToSQL(); err == nil {
		t.Fatalf("expected error for update without sets")
	}
	if _, _, err := InsertModel("fixtures", (*struct{})(nil), ""); err == nil {
		t.Fatalf("expected error for nil model")
	}
}
