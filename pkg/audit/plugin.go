package audit

import (
	"reflect"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/narwhalmedia/gallery/pkg/identity"
)

// Plugin is a GORM plugin that stamps audit columns on every create and
// update issued with a context carrying an identity.
//
// Struct and slice destinations are stamped through their CreatedBy,
// UpdatedBy and DeletedBy fields (nil pointer or empty string means unset).
// Map destinations follow the StampCreate/StampUpdate rules. The update
// branch of an ON CONFLICT clause gets updated_by unless it already assigns
// it; an UpdateAll upsert is expanded so that it never rewrites created_by.
// An update that sets deleted_at also gets deleted_by.
type Plugin struct{}

// Name implements gorm.Plugin.
func (Plugin) Name() string {
	return "gallery:audit"
}

// Initialize implements gorm.Plugin.
func (p Plugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("gallery:audit_create", p.beforeCreate); err != nil {
		return err
	}
	return db.Callback().Update().Before("gorm:update").Register("gallery:audit_update", p.beforeUpdate)
}

func (p Plugin) beforeCreate(db *gorm.DB) {
	stmt := db.Statement
	if db.Error != nil || stmt.Schema == nil {
		return
	}
	expandUpdateAll(stmt)

	actor := identity.ActorID(stmt.Context)
	if actor == "" {
		return
	}

	attrs := presentAttrs(stmt.Schema, createdBy, updatedBy)
	if len(attrs) > 0 {
		switch dest := stmt.Dest.(type) {
		case map[string]interface{}:
			stampMapInPlace(dest, actor, attrs)
		case []map[string]interface{}:
			for _, row := range dest {
				stampMapInPlace(row, actor, attrs)
			}
		default:
			stampReflect(stmt, stmt.ReflectValue, actor, attrs, false)
		}
	}

	stampOnConflict(stmt, actor)
}

func (p Plugin) beforeUpdate(db *gorm.DB) {
	stmt := db.Statement
	if db.Error != nil || stmt.Schema == nil {
		return
	}
	actor := identity.ActorID(stmt.Context)
	if actor == "" {
		return
	}

	attrs := presentAttrs(stmt.Schema, updatedBy)
	switch dest := stmt.Dest.(type) {
	case map[string]interface{}:
		if settingDeletedAt(dest) {
			attrs = append(attrs, presentAttrs(stmt.Schema, deletedBy)...)
		}
		stampMapInPlace(dest, actor, attrs)
	default:
		if len(attrs) == 0 {
			return
		}
		// A whole-row save carries the previous updater in the model, which
		// is not a caller override.
		wholeRow := stmt.Dest == stmt.Model
		destValue := reflect.Indirect(reflect.ValueOf(stmt.Dest))
		if !wholeRow && destValue.Kind() == reflect.Struct && destValue.Type() == stmt.Schema.ModelType {
			if !destValue.CanAddr() {
				addressable := reflect.New(destValue.Type())
				addressable.Elem().Set(destValue)
				stmt.Dest = addressable.Interface()
				destValue = addressable.Elem()
			}
			stampReflect(stmt, destValue, actor, attrs, false)
			return
		}
		stampReflect(stmt, stmt.ReflectValue, actor, attrs, wholeRow)
	}
}

// expandUpdateAll replaces an UpdateAll upsert by the explicit assignment
// list GORM would build for it, minus created_by. updated_by stays in the
// list and takes the value stamped on the insert row.
func expandUpdateAll(stmt *gorm.Statement) {
	c, ok := stmt.Clauses["ON CONFLICT"]
	if !ok {
		return
	}
	onConflict, ok := c.Expression.(clause.OnConflict)
	if !ok || !onConflict.UpdateAll || stmt.Schema.LookUpField(CreatedByColumn) == nil {
		return
	}

	selected, restricted := stmt.SelectAndOmitColumns(true, true)
	columns := make([]string, 0, len(stmt.Schema.DBNames))
	for _, name := range stmt.Schema.DBNames {
		field := stmt.Schema.FieldsByDBName[name]
		if name == CreatedByColumn || !field.Creatable || field.PrimaryKey || field.AutoCreateTime > 0 {
			continue
		}
		if v, ok := selected[name]; (ok && !v) || (!ok && restricted) {
			continue
		}
		if field.HasDefaultValue && field.DefaultValueInterface == nil && !strings.EqualFold(field.DefaultValue, "NULL") {
			continue
		}
		columns = append(columns, name)
	}

	onConflict.UpdateAll = false
	onConflict.DoUpdates = append(onConflict.DoUpdates, clause.AssignmentColumns(columns)...)
	if len(onConflict.DoUpdates) == 0 {
		onConflict.DoNothing = true
	}
	if len(onConflict.Columns) == 0 {
		for _, field := range stmt.Schema.PrimaryFields {
			onConflict.Columns = append(onConflict.Columns, clause.Column{Name: field.DBName})
		}
	}
	c.Expression = onConflict
	stmt.Clauses["ON CONFLICT"] = c
}

// stampOnConflict adds updated_by to the DO UPDATE branch of an upsert.
func stampOnConflict(stmt *gorm.Statement, actor string) {
	c, ok := stmt.Clauses["ON CONFLICT"]
	if !ok {
		return
	}
	onConflict, ok := c.Expression.(clause.OnConflict)
	if !ok || onConflict.DoNothing || onConflict.UpdateAll || len(onConflict.DoUpdates) == 0 {
		return
	}
	if stmt.Schema.LookUpField(UpdatedByColumn) == nil {
		return
	}
	for _, assignment := range onConflict.DoUpdates {
		if assignment.Column.Name == UpdatedByColumn {
			return
		}
	}
	onConflict.DoUpdates = append(onConflict.DoUpdates, clause.Assignment{
		Column: clause.Column{Name: UpdatedByColumn},
		Value:  actor,
	})
	c.Expression = onConflict
	stmt.Clauses["ON CONFLICT"] = c
}

func presentAttrs(s *schema.Schema, attrs ...attribute) []attribute {
	out := make([]attribute, 0, len(attrs))
	for _, attr := range attrs {
		if s.LookUpField(attr.field) != nil {
			out = append(out, attr)
		}
	}
	return out
}

func stampMapInPlace(data map[string]interface{}, actor string, attrs []attribute) {
	for _, attr := range attrs {
		if !supplied(data, attr) {
			data[attr.column] = actor
		}
	}
}

func settingDeletedAt(data map[string]interface{}) bool {
	for _, key := range []string{DeletedAtColumn, "DeletedAt"} {
		if v, ok := data[key]; ok && v != nil {
			return true
		}
	}
	return false
}

// stampReflect stamps a struct or every element of a slice. With overwrite
// set, caller values are replaced.
func stampReflect(stmt *gorm.Statement, rv reflect.Value, actor string, attrs []attribute, overwrite bool) {
	rv = reflect.Indirect(rv)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			stampReflect(stmt, rv.Index(i), actor, attrs, overwrite)
		}
	case reflect.Struct:
		if !rv.CanAddr() {
			return
		}
		for _, attr := range attrs {
			field := stmt.Schema.LookUpField(attr.field)
			if field == nil {
				continue
			}
			if !overwrite {
				if current, isZero := field.ValueOf(stmt.Context, rv); !isZero && isSet(current) {
					continue
				}
			}
			value := actor
			if err := field.Set(stmt.Context, rv, &value); err != nil {
				_ = stmt.AddError(err)
			}
		}
	}
}
