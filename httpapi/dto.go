package httpapi

import (
	"fmt"

	"library-circulation/library"
)

type CreateItemRequest struct {
	Type     string `json:"type" binding:"required"`
	Title    string `json:"title" binding:"required"`
	Category string `json:"category"`

	Author    string `json:"author"`
	ISBN      string `json:"isbn"`
	Edition   int    `json:"edition"`
	PageCount int    `json:"page_count"`
	Publisher string `json:"publisher"`

	Director string `json:"director"`
	Runtime  int    `json:"runtime"`
	Rating   string `json:"rating"`

	Artist   string `json:"artist"`
	Tracks   int    `json:"tracks"`
	Duration int    `json:"duration"`
}

// media builds the variant named by Type.
func (r CreateItemRequest) media() (library.Media, error) {
	kind, err := library.ParseKind(r.Type)
	if err != nil {
		return nil, err
	}
	switch kind {
	case library.KindDVD:
		m := library.NewDVD(r.Director, r.Runtime)
		if r.Rating != "" {
			m.Rating = r.Rating
		}
		return m, nil
	case library.KindCD:
		m := library.NewCD(r.Artist, r.Tracks)
		m.Duration = r.Duration
		return m, nil
	case library.KindBook:
		m := library.NewBook(r.Author, r.ISBN)
		if r.Edition > 0 {
			m.Edition = r.Edition
		}
		m.PageCount, m.Publisher = r.PageCount, r.Publisher
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", library.ErrUnknownKind, r.Type)
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type RegisterPatronRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email"`
	MembershipLevel string `json:"membership_level"`
}

type CheckoutRequest struct {
	PatronID int64 `json:"patron_id" binding:"required"`
	ItemID   int64 `json:"item_id" binding:"required"`
}

type CheckinRequest struct {
	ItemID    int64  `json:"item_id" binding:"required"`
	Condition string `json:"condition"`
}

type ReserveRequest struct {
	PatronID int64 `json:"patron_id" binding:"required"`
}

type NotifyRequest struct {
	Message string `json:"message" binding:"required"`
}

type ReserveResponse struct {
	ItemID   int64   `json:"item_id"`
	PatronID int64   `json:"patron_id"`
	Added    bool    `json:"added"`
	Queue    []int64 `json:"queue"`
}

type errorDTO struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	return errorBody(library.ErrorCode(err), err.Error())
}
