package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/jjenkins/orgadmin/internal/hierarchy"
	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalid        = errors.New("invalid command")
	ErrUnknownUnit    = errors.New("unknown unit")
	ErrCycle          = errors.New("move would create a cycle")
	ErrOvercommitted  = errors.New("filled and reserved slots exceed total")
)

var commandsTotal = sync.OnceValue(func() *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgadmin",
		Name:      "commands_total",
		Help:      "Administrative commands dispatched, by type and result.",
	}, []string{"type", "result"})
})

// Backend performs mutations against the organization API
type Backend interface {
	CreateUnit(ctx context.Context, u model.UnitRecord) (*model.UnitRecord, error)
	UpdateUnit(ctx context.Context, id string, changes map[string]any) (*model.UnitRecord, error)
	DeleteUnit(ctx context.Context, id string) error
	SetCommander(ctx context.Context, unitID, userID string) error
	CreatePosition(ctx context.Context, p model.PositionRecord) (*model.PositionRecord, error)
	DeletePosition(ctx context.Context, id string) error
	AssignHolder(ctx context.Context, positionID, userID string) error
	VacatePosition(ctx context.Context, positionID string) error
	UpsertSlot(ctx context.Context, s model.RecruitmentSlot) (*model.RecruitmentSlot, error)
}

// UnitLister supplies the current unit records for structural checks
type UnitLister interface {
	Units(ctx context.Context) ([]model.UnitRecord, error)
}

// Result is the outcome of a dispatched command
type Result struct {
	Type     string                 `json:"type"`
	Message  string                 `json:"message"`
	Unit     *model.UnitRecord      `json:"unit,omitempty"`
	Position *model.PositionRecord  `json:"position,omitempty"`
	Slot     *model.RecruitmentSlot `json:"slot,omitempty"`
}

// Dispatcher validates commands and forwards them to the backend
type Dispatcher struct {
	backend  Backend
	units    UnitLister
	validate *validator.Validate
	logger   logrus.FieldLogger
	total    *prometheus.CounterVec
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(backend Backend, units UnitLister, logger logrus.FieldLogger) *Dispatcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		backend:  backend,
		units:    units,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		total:    commandsTotal(),
	}
}

// Dispatch validates cmd and executes it
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (*Result, error) {
	log := d.logger.WithField("command", cmd.Type())

	res, err := d.dispatch(ctx, cmd)
	if err != nil {
		d.total.WithLabelValues(cmd.Type(), "error").Inc()
		log.WithError(err).Warn("Command rejected")
		return nil, err
	}

	d.total.WithLabelValues(cmd.Type(), "ok").Inc()
	log.Info(res.Message)
	return res, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, cmd Command) (*Result, error) {
	if err := d.validate.Struct(cmd); err != nil {
		return nil, validationError(err)
	}

	switch c := cmd.(type) {
	case CreateUnit:
		return d.createUnit(ctx, c)
	case UpdateUnit:
		return d.updateUnit(ctx, c)
	case MoveUnit:
		return d.moveUnit(ctx, c)
	case DeleteUnit:
		if err := d.backend.DeleteUnit(ctx, c.UnitID); err != nil {
			return nil, err
		}
		return &Result{Type: c.Type(), Message: fmt.Sprintf("Unit %s deleted", c.UnitID)}, nil
	case AssignCommander:
		if err := d.backend.SetCommander(ctx, c.UnitID, c.UserID); err != nil {
			return nil, err
		}
		return &Result{Type: c.Type(), Message: fmt.Sprintf("Commander of unit %s set to %s", c.UnitID, c.UserID)}, nil
	case CreatePosition:
		return d.createPosition(ctx, c)
	case DeletePosition:
		if err := d.backend.DeletePosition(ctx, c.PositionID); err != nil {
			return nil, err
		}
		return &Result{Type: c.Type(), Message: fmt.Sprintf("Position %s deleted", c.PositionID)}, nil
	case AssignHolder:
		if err := d.backend.AssignHolder(ctx, c.PositionID, c.UserID); err != nil {
			return nil, err
		}
		return &Result{Type: c.Type(), Message: fmt.Sprintf("Position %s assigned to %s", c.PositionID, c.UserID)}, nil
	case VacatePosition:
		if err := d.backend.VacatePosition(ctx, c.PositionID); err != nil {
			return nil, err
		}
		return &Result{Type: c.Type(), Message: fmt.Sprintf("Position %s vacated", c.PositionID)}, nil
	case UpsertSlot:
		return d.upsertSlot(ctx, c)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

func (d *Dispatcher) createUnit(ctx context.Context, c CreateUnit) (*Result, error) {
	if c.ParentID != "" {
		forest, err := d.forest(ctx)
		if err != nil {
			return nil, err
		}
		if _, ok := forest.Find(c.ParentID); !ok {
			return nil, fmt.Errorf("%w: parent %s", ErrUnknownUnit, c.ParentID)
		}
	}

	rec := model.UnitRecord{
		ParentID:     model.StringPtr(c.ParentID),
		Name:         strings.TrimSpace(c.Name),
		Abbreviation: strings.TrimSpace(c.Abbreviation),
		UnitType:     c.UnitType,
		Motto:        c.Motto,
		Location:     c.Location,
		Established:  c.Established,
		IsActive:     true,
	}
	if c.BranchID != "" {
		rec.Branch = &model.BranchRef{ID: c.BranchID}
	}

	created, err := d.backend.CreateUnit(ctx, rec)
	if err != nil {
		return nil, err
	}
	return &Result{Type: c.Type(), Message: fmt.Sprintf("Unit %s created", created.ID), Unit: created}, nil
}

func (d *Dispatcher) updateUnit(ctx context.Context, c UpdateUnit) (*Result, error) {
	if _, ok := c.Changes["parent_unit"]; ok {
		return nil, fmt.Errorf("%w: use %s to change the parent", ErrInvalid, TypeMoveUnit)
	}
	updated, err := d.backend.UpdateUnit(ctx, c.UnitID, c.Changes)
	if err != nil {
		return nil, err
	}
	return &Result{Type: c.Type(), Message: fmt.Sprintf("Unit %s updated", c.UnitID), Unit: updated}, nil
}

// moveUnit rejects moves onto the unit itself or below one of its descendants
func (d *Dispatcher) moveUnit(ctx context.Context, c MoveUnit) (*Result, error) {
	forest, err := d.forest(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := forest.Find(c.UnitID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUnit, c.UnitID)
	}

	var parent any
	if c.NewParentID != "" {
		if _, ok := forest.Find(c.NewParentID); !ok {
			return nil, fmt.Errorf("%w: parent %s", ErrUnknownUnit, c.NewParentID)
		}
		if c.NewParentID == c.UnitID || forest.IsDescendant(c.NewParentID, c.UnitID) {
			return nil, fmt.Errorf("%w: %s under %s", ErrCycle, c.UnitID, c.NewParentID)
		}
		parent = c.NewParentID
	}

	updated, err := d.backend.UpdateUnit(ctx, c.UnitID, map[string]any{"parent_unit": parent})
	if err != nil {
		return nil, err
	}
	return &Result{Type: c.Type(), Message: fmt.Sprintf("Unit %s moved", c.UnitID), Unit: updated}, nil
}

func (d *Dispatcher) createPosition(ctx context.Context, c CreatePosition) (*Result, error) {
	rec := model.PositionRecord{
		UnitID:       c.UnitID,
		DisplayTitle: strings.TrimSpace(c.DisplayTitle),
		Title:        c.Title,
		Identifier:   c.Identifier,
		IsVacant:     true,
	}
	if c.RoleID != "" {
		rec.Role = &model.RoleRef{ID: c.RoleID}
	}

	created, err := d.backend.CreatePosition(ctx, rec)
	if err != nil {
		return nil, err
	}
	return &Result{Type: c.Type(), Message: fmt.Sprintf("Position %s created", created.ID), Position: created}, nil
}

func (d *Dispatcher) upsertSlot(ctx context.Context, c UpsertSlot) (*Result, error) {
	slot := model.RecruitmentSlot{
		ID:            c.SlotID,
		UnitID:        c.UnitID,
		CareerTrack:   c.CareerTrack,
		TotalSlots:    c.TotalSlots,
		FilledSlots:   c.FilledSlots,
		ReservedSlots: c.ReservedSlots,
		IsActive:      c.IsActive == nil || *c.IsActive,
	}
	if slot.Overcommitted() {
		return nil, fmt.Errorf("%w: %d filled + %d reserved > %d total",
			ErrOvercommitted, c.FilledSlots, c.ReservedSlots, c.TotalSlots)
	}
	if c.RoleID != "" {
		slot.Role = &model.RoleRef{ID: c.RoleID}
	}

	saved, err := d.backend.UpsertSlot(ctx, slot)
	if err != nil {
		return nil, err
	}
	return &Result{Type: c.Type(), Message: fmt.Sprintf("Recruitment slot %s saved", saved.ID), Slot: saved}, nil
}

func (d *Dispatcher) forest(ctx context.Context) (*hierarchy.Forest, error) {
	units, err := d.units.Units(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load units: %w", err)
	}
	return hierarchy.Build(units), nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(fields, ", "))
}
