package usecase

import (
	"errors"
	"fmt"
	"net/http"

	repo "reweave/internal/repository"
)

// handlerでそのままステータスとメッセージに変換する
type HTTPError struct {
	Status  int
	Message string

	// 500のときログに出す元のエラー。クライアントには返さない
	Err error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// DBなど想定外の失敗
func internalError(err error) error {
	return &HTTPError{Status: http.StatusInternalServerError, Message: "internal error", Err: err}
}

// ErrNotFoundなら404、それ以外は500
func notFoundOr(err error, message string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, message)
	}
	return internalError(err)
}

// 在庫不足。実際に売れる数量を返してクライアントに数量を直させる
type InsufficientInventoryError struct {
	ProductID int64
	VariantID *int64
	Requested int64
	Available int64
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("Insufficient inventory. Only %d items available", e.Available)
}

func AsInsufficientInventory(err error) (*InsufficientInventoryError, bool) {
	var ie *InsufficientInventoryError
	ok := errors.As(err, &ie)
	return ie, ok
}
