package service

import (
	"github.com/bivex/storekit-manager/internal/domain/entity"
)

// Observer receives purchase and restore notifications from the PurchaseManager.
// Calls are delivered on the manager's callback queue.
type Observer interface {
	// PurchaseCompleted reports a terminal purchase outcome. tx is nil when the
	// payment could not be submitted to the platform.
	PurchaseCompleted(product *entity.Product, tx *entity.Transaction, success bool, err error)

	// RestoredTransaction reports one transaction restored during a restore session
	RestoredTransaction(tx *entity.Transaction)

	// RestoreCompleted reports the end of a restore session
	RestoreCompleted(success bool, err error)
}

// DeferredObserver is an optional capability for observers that want to know
// about transactions awaiting external approval.
type DeferredObserver interface {
	PurchaseDeferred(product *entity.Product, tx *entity.Transaction)
}

// ObserverFuncs adapts plain functions to Observer; nil fields are skipped
type ObserverFuncs struct {
	OnPurchaseComplete func(product *entity.Product, tx *entity.Transaction, success bool, err error)
	OnRestoreProgress  func(tx *entity.Transaction)
	OnRestoreComplete  func(success bool, err error)
	OnPurchaseDeferred func(product *entity.Product, tx *entity.Transaction)
}

func (f ObserverFuncs) PurchaseCompleted(product *entity.Product, tx *entity.Transaction, success bool, err error) {
	if f.OnPurchaseComplete != nil {
		f.OnPurchaseComplete(product, tx, success, err)
	}
}

func (f ObserverFuncs) RestoredTransaction(tx *entity.Transaction) {
	if f.OnRestoreProgress != nil {
		f.OnRestoreProgress(tx)
	}
}

func (f ObserverFuncs) RestoreCompleted(success bool, err error) {
	if f.OnRestoreComplete != nil {
		f.OnRestoreComplete(success, err)
	}
}

func (f ObserverFuncs) PurchaseDeferred(product *entity.Product, tx *entity.Transaction) {
	if f.OnPurchaseDeferred != nil {
		f.OnPurchaseDeferred(product, tx)
	}
}

// MultiObserver fans notifications out to several observers in order
type MultiObserver []Observer

func (m MultiObserver) PurchaseCompleted(product *entity.Product, tx *entity.Transaction, success bool, err error) {
	for _, o := range m {
		o.PurchaseCompleted(product, tx, success, err)
	}
}

func (m MultiObserver) RestoredTransaction(tx *entity.Transaction) {
	for _, o := range m {
		o.RestoredTransaction(tx)
	}
}

func (m MultiObserver) RestoreCompleted(success bool, err error) {
	for _, o := range m {
		o.RestoreCompleted(success, err)
	}
}

func (m MultiObserver) PurchaseDeferred(product *entity.Product, tx *entity.Transaction) {
	for _, o := range m {
		if d, ok := o.(DeferredObserver); ok {
			d.PurchaseDeferred(product, tx)
		}
	}
}
