package expense

import (
	"context"

	"github.com/sitetrack/sitetrack/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	List(ctx context.Context, filter Filter) ([]Expense, error)
	Get(ctx context.Context, id string) (Expense, error)
	Create(ctx context.Context, in Input) (Expense, error)
	Update(ctx context.Context, id string, in Input) (Expense, error)
	Delete(ctx context.Context, id string) error
}

// ReceiptRemover drops the stored file behind a receipt reference.
type ReceiptRemover interface {
	Delete(ctx context.Context, ref string) error
}

type ServiceImpl struct {
	repo      Repository
	validator *Validator
	receipts  ReceiptRemover
	eventBus  *event_bus.EventBus
}

func NewService(repo Repository, validator *Validator, receipts ReceiptRemover, eventBus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{repo: repo, validator: validator, receipts: receipts, eventBus: eventBus}
}

func (s *ServiceImpl) List(ctx context.Context, filter Filter) ([]Expense, error) {
	return s.repo.FindAll(ctx, filter)
}

func (s *ServiceImpl) Get(ctx context.Context, id string) (Expense, error) {
	return s.repo.FindById(ctx, id)
}

func (s *ServiceImpl) Create(ctx context.Context, in Input) (Expense, error) {
	expense, err := s.validator.Validate(ctx, in)
	if err != nil {
		log.Debugf("rejected new expense: %v", err)
		return Expense{}, err
	}
	created, err := s.repo.Create(ctx, expense)
	if err != nil {
		return Expense{}, err
	}
	s.publishRecorded(ctx, created, false)
	return created, nil
}

func (s *ServiceImpl) Update(ctx context.Context, id string, in Input) (Expense, error) {
	expense, err := s.validator.Validate(ctx, in)
	if err != nil {
		log.Debugf("rejected update of expense %s: %v", id, err)
		return Expense{}, err
	}
	existing, err := s.repo.FindById(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	updated, err := s.repo.UpdateById(ctx, id, expense)
	if err != nil {
		return Expense{}, err
	}
	if existing.Receipt != "" && existing.Receipt != updated.Receipt {
		s.removeReceipt(ctx, id, existing.Receipt)
	}
	s.publishRecorded(ctx, updated, true)
	return updated, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.FindById(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteById(ctx, id); err != nil {
		return err
	}

	if existing.Receipt != "" {
		s.removeReceipt(ctx, id, existing.Receipt)
	}

	if s.eventBus != nil {
		err = s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.ExpenseDeletedType, event_bus.ExpenseDeleted{
			Id:        existing.Id,
			ProjectId: existing.ProjectId,
		}))
		if err != nil {
			log.Errorf("failed to publish expense deleted event: %v", err)
		}
	}
	return nil
}

// removeReceipt drops a file no longer referenced by expense id. Failures are
// logged only, the expense write already happened.
func (s *ServiceImpl) removeReceipt(ctx context.Context, id, ref string) {
	if s.receipts == nil {
		return
	}
	if err := s.receipts.Delete(ctx, ref); err != nil {
		log.Warnf("receipt %s of expense %s was not removed: %v", ref, id, err)
	}
}

// publishRecorded notifies subscribers after the write is committed. A failing
// subscriber does not undo the write.
func (s *ServiceImpl) publishRecorded(ctx context.Context, e Expense, updated bool) {
	if s.eventBus == nil {
		return
	}
	err := s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.ExpenseRecordedType, event_bus.ExpenseRecorded{
		Id:          e.Id,
		Title:       e.Title,
		AmountCents: e.Amount.Cents(),
		Category:    string(e.Category),
		ProjectId:   e.ProjectId,
		Updated:     updated,
	}))
	if err != nil {
		log.Errorf("failed to publish expense recorded event: %v", err)
	}
}
