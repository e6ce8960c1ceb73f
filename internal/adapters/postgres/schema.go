package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kevin07696/lawdesk/internal/domain/ports"
)

const (
	tableCompanies    = "companies"
	tableAsaasCharges = "asaas_charges"
)

// Column names accepted for renamed foreign keys, preferred name first
var (
	companyPlanColumns   = []string{"plan_id", "plano_id"}
	chargeCompanyColumns = []string{"company_id", "empresa_id"}
)

// SchemaColumns are the foreign key column names found in the live schema.
// Older databases still carry the Portuguese names.
type SchemaColumns struct {
	// CompanyPlan is the plan column on companies
	CompanyPlan string
	// ChargeCompany is the company column on asaas_charges; empty when the
	// table has none, in which case charges never drive subscriptions
	ChargeCompany string
}

// DefaultSchemaColumns matches the schema created by the migrations
func DefaultSchemaColumns() SchemaColumns {
	return SchemaColumns{
		CompanyPlan:   companyPlanColumns[0],
		ChargeCompany: chargeCompanyColumns[0],
	}
}

const probeColumnsQuery = `
SELECT table_name, column_name
FROM information_schema.columns
WHERE table_schema = current_schema()
  AND table_name = ANY($1)
  AND column_name = ANY($2)`

// ProbeSchema resolves SchemaColumns once at startup
func ProbeSchema(ctx context.Context, db ports.DBTX) (SchemaColumns, error) {
	candidates := append(append([]string{}, companyPlanColumns...), chargeCompanyColumns...)

	rows, err := db.Query(ctx, probeColumnsQuery, []string{tableCompanies, tableAsaasCharges}, candidates)
	if err != nil {
		return SchemaColumns{}, fmt.Errorf("probe schema columns: %w", err)
	}
	defer rows.Close()

	found := make(map[string]map[string]bool)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return SchemaColumns{}, fmt.Errorf("scan schema column: %w", err)
		}
		if found[table] == nil {
			found[table] = make(map[string]bool)
		}
		found[table][column] = true
	}
	if err := rows.Err(); err != nil {
		return SchemaColumns{}, fmt.Errorf("iterate schema columns: %w", err)
	}

	return resolveSchemaColumns(found)
}

func resolveSchemaColumns(found map[string]map[string]bool) (SchemaColumns, error) {
	cols := SchemaColumns{
		CompanyPlan:   firstPresent(found[tableCompanies], companyPlanColumns),
		ChargeCompany: firstPresent(found[tableAsaasCharges], chargeCompanyColumns),
	}
	if cols.CompanyPlan == "" {
		return SchemaColumns{}, fmt.Errorf("table %s has none of the plan columns %v", tableCompanies, companyPlanColumns)
	}
	return cols, nil
}

func firstPresent(columns map[string]bool, candidates []string) string {
	for _, c := range candidates {
		if columns[c] {
			return c
		}
	}
	return ""
}

// ident quotes a probed column name for use in SQL text
func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
