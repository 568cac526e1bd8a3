package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"
)

type AddressDTO struct {
	ID            int64   `json:"id"`
	UserID        int64   `json:"user_id"`
	Label         string  `json:"label"`
	RecipientName string  `json:"recipient_name"`
	Phone         string  `json:"phone"`
	AddressLine1  string  `json:"address_line1"`
	AddressLine2  string  `json:"address_line2"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	PostalCode    string  `json:"postal_code"`
	Country       string  `json:"country"`
	IsDefault     bool    `json:"is_default"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     *string `json:"updated_at,omitempty"`
}

type AddressCreateRequest struct {
	Label     string `json:"label"`
	IsDefault bool   `json:"is_default"`
	AddressInput
}

// PATCH用。nilは変更しない
type AddressUpdateRequest struct {
	Label         *string `json:"label"`
	RecipientName *string `json:"recipient_name"`
	Phone         *string `json:"phone"`
	AddressLine1  *string `json:"address_line1"`
	AddressLine2  *string `json:"address_line2"`
	City          *string `json:"city"`
	State         *string `json:"state"`
	PostalCode    *string `json:"postal_code"`
	Country       *string `json:"country"`
	IsDefault     *bool   `json:"is_default"`
}

type AddressUsecase struct {
	tx repo.TransactionManager
}

func NewAddressUsecase(tx repo.TransactionManager) *AddressUsecase {
	return &AddressUsecase{tx: tx}
}

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]AddressDTO, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out []AddressDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		list, err := r.Addresses().ListByUserID(ctx, userID)
		if err != nil {
			return internalError(err)
		}
		out = make([]AddressDTO, 0, len(list))
		for i := range list {
			out = append(out, toAddressDTO(&list[i]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *AddressUsecase) Get(ctx context.Context, userID int64, addressID int64) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return AddressDTO{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out AddressDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		a, err := r.Addresses().FindByIDForUser(ctx, addressID, userID)
		if err != nil {
			return notFoundOr(err, "Address not found")
		}
		out = toAddressDTO(&a)
		return nil
	})
	if err != nil {
		return AddressDTO{}, err
	}
	return out, nil
}

// 最初の1件は自動でデフォルト
func (u *AddressUsecase) Create(ctx context.Context, userID int64, req AddressCreateRequest) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//入力チェック
	snap, err := req.AddressInput.snapshot()
	if err != nil {
		return AddressDTO{}, err
	}

	var out AddressDTO
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		n, err := r.Addresses().CountByUserID(ctx, userID)
		if err != nil {
			return internalError(err)
		}

		created, err := r.Addresses().Create(ctx, model.Address{
			UserID:        userID,
			Label:         strings.TrimSpace(req.Label),
			RecipientName: snap.RecipientName,
			Phone:         snap.Phone,
			AddressLine1:  snap.AddressLine1,
			AddressLine2:  snap.AddressLine2,
			City:          snap.City,
			State:         snap.State,
			PostalCode:    snap.PostalCode,
			Country:       snap.Country,
		})
		if err != nil {
			return internalError(err)
		}

		if n == 0 || req.IsDefault {
			//user内でdefaultは1つ
			if err := r.Addresses().SetDefault(ctx, userID, created.ID); err != nil {
				return internalError(err)
			}
			created.IsDefault = true
		}

		out = toAddressDTO(&created)
		return nil
	})
	if err != nil {
		return AddressDTO{}, err
	}
	return out, nil
}

func (u *AddressUsecase) Update(ctx context.Context, userID int64, addressID int64, req AddressUpdateRequest) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return AddressDTO{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out AddressDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//所有チェック（本人のみ、他人のは404）
		a, err := r.Addresses().FindByIDForUser(ctx, addressID, userID)
		if err != nil {
			return notFoundOr(err, "Address not found")
		}

		set := func(dst *string, v *string) {
			if v != nil {
				*dst = strings.TrimSpace(*v)
			}
		}
		set(&a.Label, req.Label)
		set(&a.RecipientName, req.RecipientName)
		set(&a.Phone, req.Phone)
		set(&a.AddressLine1, req.AddressLine1)
		set(&a.AddressLine2, req.AddressLine2)
		set(&a.City, req.City)
		set(&a.State, req.State)
		set(&a.PostalCode, req.PostalCode)
		set(&a.Country, req.Country)
		a.Country = strings.ToUpper(a.Country)

		// 必須項目を空にはできない
		if _, err := addressInputOf(a).snapshot(); err != nil {
			return err
		}

		if err := r.Addresses().Update(ctx, a); err != nil {
			return notFoundOr(err, "Address not found")
		}

		if req.IsDefault != nil && *req.IsDefault && !a.IsDefault {
			if err := r.Addresses().SetDefault(ctx, userID, a.ID); err != nil {
				return notFoundOr(err, "Address not found")
			}
			a.IsDefault = true
		}

		out = toAddressDTO(&a)
		return nil
	})
	if err != nil {
		return AddressDTO{}, err
	}
	return out, nil
}

// デフォルトを消したら残りの先頭をデフォルトにする
func (u *AddressUsecase) Delete(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		a, err := r.Addresses().FindByIDForUser(ctx, addressID, userID)
		if err != nil {
			return notFoundOr(err, "Address not found")
		}
		if err := r.Addresses().Delete(ctx, addressID, userID); err != nil {
			return notFoundOr(err, "Address not found")
		}
		if !a.IsDefault {
			return nil
		}

		rest, err := r.Addresses().ListByUserID(ctx, userID)
		if err != nil {
			return internalError(err)
		}
		if len(rest) == 0 {
			return nil
		}
		if err := r.Addresses().SetDefault(ctx, userID, rest[0].ID); err != nil {
			return internalError(err)
		}
		return nil
	})
}

func (u *AddressUsecase) SetDefault(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Addresses().FindByIDForUser(ctx, addressID, userID); err != nil {
			return notFoundOr(err, "Address not found")
		}
		//user内でdefaultは1つ
		if err := r.Addresses().SetDefault(ctx, userID, addressID); err != nil {
			return notFoundOr(err, "Address not found")
		}
		return nil
	})
}

func addressInputOf(a model.Address) AddressInput {
	return AddressInput{
		RecipientName: a.RecipientName,
		Phone:         a.Phone,
		AddressLine1:  a.AddressLine1,
		AddressLine2:  a.AddressLine2,
		City:          a.City,
		State:         a.State,
		PostalCode:    a.PostalCode,
		Country:       a.Country,
	}
}

func toAddressDTO(a *model.Address) AddressDTO {
	dto := AddressDTO{
		ID:            a.ID,
		UserID:        a.UserID,
		Label:         a.Label,
		RecipientName: a.RecipientName,
		Phone:         a.Phone,
		AddressLine1:  a.AddressLine1,
		AddressLine2:  a.AddressLine2,
		City:          a.City,
		State:         a.State,
		PostalCode:    a.PostalCode,
		Country:       a.Country,
		IsDefault:     a.IsDefault,
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
	if !a.UpdatedAt.IsZero() {
		t := a.UpdatedAt.Format(time.RFC3339)
		dto.UpdatedAt = &t
	}
	return dto
}
