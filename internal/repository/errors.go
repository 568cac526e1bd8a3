package repository

import "errors"

var (
	// 見つからない or 他人のもの
	ErrNotFound = errors.New("not found")

	// 一意制約違反（注文番号の重複、ウィッシュリストの重複など）
	ErrConflict = errors.New("conflict")
)
