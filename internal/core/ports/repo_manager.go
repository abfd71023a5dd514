package ports

import "github.com/ArkLabsHQ/lnwatch/internal/core/domain"

type RepoManager interface {
	Events() domain.EventRepository
	Payments() domain.PaymentRepository
	Close()
}
