package enrollment

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/amigodopovo/academia/core"
	"github.com/amigodopovo/academia/core/activity"
	"github.com/amigodopovo/academia/core/class"
	"github.com/amigodopovo/academia/core/student"
)

// per-row failure reasons
const (
	ReasonEmptyName        = "empty_name"
	ReasonUnknownActivity  = "unknown_activity"
	ReasonUnknownClass     = "unknown_class"
	ReasonInvalidBirthDate = "invalid_birth_date"
	ReasonInvalid          = "invalid"
	ReasonEnrollFailed     = "enroll_failed"
	ReasonStoreError       = "store_error"
)

var birthDateLayouts = []string{"02/01/2006", "02/01/06", "2006-01-02"}

type (
	ImportOptions struct {
		// CreateMissing creates unknown activities and classes instead of failing the row.
		CreateMissing bool
		CreatedBy     string
	}

	// ImportResult is either a created student ID or a failure Reason.
	// ID is only set on a failed row when the student could not be removed again.
	ImportResult struct {
		Row    int
		ID     int
		Reason string
		Err    error
	}

	ImportSummary struct {
		BatchID string
		Results []ImportResult
	}
)

func (r ImportResult) OK() bool {
	return r.Reason == ""
}

func (s ImportSummary) Imported() int {
	var n int
	for _, r := range s.Results {
		if r.OK() {
			n++
		}
	}
	return n
}

func (s ImportSummary) Failed() int {
	return len(s.Results) - s.Imported()
}

// importRun caches lookups for a single BulkImport call.
type importRun struct {
	svc        *service
	opts       ImportOptions
	activities map[string]int
	classes    map[string]int
	touchedAct map[int]bool
	touchedCls map[int]bool
}

// BulkImport creates one student per row. Rows fail independently; the returned error is only
// set when ctx ends the run early.
func (svc *service) BulkImport(ctx context.Context, rows []ImportRow, opts ImportOptions) (ImportSummary, error) {
	sum := ImportSummary{BatchID: uuid.New().String(), Results: make([]ImportResult, 0, len(rows))}
	svc.log.Info("import started", map[string]interface{}{"batch": sum.BatchID, "rows": len(rows)})

	run := &importRun{
		svc:        svc,
		opts:       opts,
		activities: make(map[string]int),
		classes:    make(map[string]int),
		touchedAct: make(map[int]bool),
		touchedCls: make(map[int]bool),
	}
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res := run.importRow(ctx, row)
		if res.Row == 0 {
			res.Row = i + 1
		}
		if !res.OK() {
			svc.log.Warn("import row failed", map[string]interface{}{
				"batch": sum.BatchID, "row": res.Row, "reason": res.Reason,
			})
		}
		sum.Results = append(sum.Results, res)
	}

	for id := range run.touchedCls {
		if _, err := svc.classes.Recount(ctx, id); err != nil {
			svc.log.Warn("recounting class after import", err, map[string]interface{}{"batch": sum.BatchID, "class": id})
		}
	}
	for id := range run.touchedAct {
		if _, err := svc.activities.Recount(ctx, id); err != nil {
			svc.log.Warn("recounting activity after import", err, map[string]interface{}{"batch": sum.BatchID, "activity": id})
		}
	}

	svc.log.Info("import finished", map[string]interface{}{
		"batch": sum.BatchID, "imported": sum.Imported(), "failed": sum.Failed(),
	})
	return sum, nil
}

func (run *importRun) importRow(ctx context.Context, row ImportRow) ImportResult {
	res := ImportResult{Row: row.Line}
	fail := func(reason string, err error) ImportResult {
		res.Reason, res.Err = reason, err
		return res
	}

	name := core.CleanString(row.Name)
	if name == "" {
		return fail(ReasonEmptyName, student.ErrEmptyName)
	}

	var birth *time.Time
	if row.BirthDate != "" {
		t, ok := parseBirthDate(row.BirthDate)
		if !ok {
			return fail(ReasonInvalidBirthDate, core.NewError(core.KindValidation, "invalid birth date "+row.BirthDate))
		}
		birth = &t
	}

	var activityID *int
	if row.Activity != "" {
		id, reason, err := run.activityID(ctx, row.Activity)
		if reason != "" {
			return fail(reason, err)
		}
		activityID = &id
	}

	var classID *int
	if row.Class != "" {
		if activityID == nil {
			return fail(ReasonUnknownClass, class.ErrNotFound)
		}
		id, reason, err := run.classID(ctx, *activityID, row.Class)
		if reason != "" {
			return fail(reason, err)
		}
		if reason, err = run.checkClass(ctx, id); reason != "" {
			return fail(reason, err)
		}
		classID = &id
	}

	std, err := run.svc.students.Create(ctx, student.NewStudent{
		Name:       name,
		Phone:      row.Phone,
		Email:      row.Email,
		Address:    row.Address,
		BirthDate:  birth,
		Notes:      row.Notes,
		ActivityID: activityID,
	})
	if err != nil {
		if core.IsKind(err, core.KindValidation) {
			return fail(ReasonInvalid, err)
		}
		return fail(ReasonStoreError, err)
	}
	res.ID = std.ID
	if activityID != nil {
		run.touchedAct[*activityID] = true
	}

	if classID != nil {
		if _, err = run.svc.repo.AssignClass(ctx, std.ID, *classID, nil); err != nil {
			// the row fails as a whole: drop the student created above
			if _, delErr := run.svc.students.HardDelete(ctx, std.ID); delErr != nil {
				run.svc.log.Error("removing student of a failed import row", delErr, map[string]interface{}{"id": std.ID})
			} else {
				res.ID = 0
			}
			return fail(ReasonEnrollFailed, err)
		}
		run.touchedCls[*classID] = true
	}
	return res
}

// checkClass refuses inactive or full classes before any student is created.
func (run *importRun) checkClass(ctx context.Context, classID int) (string, error) {
	cls, err := run.svc.classes.GetByID(ctx, classID)
	if err != nil {
		return ReasonStoreError, err
	}
	if !cls.Active {
		return ReasonEnrollFailed, ErrClassInactive
	}
	n, err := run.svc.classes.Recount(ctx, classID)
	if err != nil {
		return ReasonStoreError, err
	}
	maxCap := cls.MaxCapacity
	if maxCap <= 0 {
		maxCap = class.DefaultMaxCapacity
	}
	if n >= maxCap {
		return ReasonEnrollFailed, ErrClassFull
	}
	return "", nil
}

func (run *importRun) activityID(ctx context.Context, name string) (int, string, error) {
	key := core.CleanString(name, true /* lower */)
	if id, ok := run.activities[key]; ok {
		return id, "", nil
	}

	act, err := run.svc.activities.GetByName(ctx, name)
	switch {
	case err == nil:
	case core.IsKind(err, core.KindNotFound) && run.opts.CreateMissing:
		act, err = run.svc.activities.Create(ctx, activity.NewActivity{
			Name:        name,
			Description: "Atividade: " + name,
		})
		if err != nil {
			return 0, ReasonStoreError, err
		}
		run.svc.log.Info("activity created by import", map[string]interface{}{"id": act.ID, "name": act.Name})
	case core.IsKind(err, core.KindNotFound):
		return 0, ReasonUnknownActivity, err
	default:
		return 0, ReasonStoreError, err
	}

	run.activities[key] = act.ID
	return act.ID, "", nil
}

func (run *importRun) classID(ctx context.Context, activityID int, name string) (int, string, error) {
	key := strconv.Itoa(activityID) + "/" + core.CleanString(name, true /* lower */)
	if id, ok := run.classes[key]; ok {
		return id, "", nil
	}

	cls, err := run.svc.classes.GetByName(ctx, activityID, name)
	switch {
	case err == nil:
	case core.IsKind(err, core.KindNotFound) && run.opts.CreateMissing:
		cls, err = run.svc.classes.Create(ctx, class.NewClass{
			Name:       name,
			ActivityID: activityID,
			Schedule:   name,
			CreatedBy:  run.opts.CreatedBy,
		})
		if err != nil {
			return 0, ReasonStoreError, err
		}
		run.svc.log.Info("class created by import", map[string]interface{}{"id": cls.ID, "name": cls.Name})
	case core.IsKind(err, core.KindNotFound):
		return 0, ReasonUnknownClass, err
	default:
		return 0, ReasonStoreError, err
	}

	run.classes[key] = cls.ID
	return cls.ID, "", nil
}

func parseBirthDate(s string) (time.Time, bool) {
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
