package biz

import (
	"github.com/flared/icq-bridge/internal/biz/usecase"
)

// Usecases contains all usecases of one account
type Usecases struct {
	Session       *usecase.SessionUsecase
	Reconciler    *usecase.ReconcilerUsecase
	Conversations *usecase.ConversationTable
}
