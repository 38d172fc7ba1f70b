package model

import "errors"

var (
	// ErrConfiguration 输入参数非法
	ErrConfiguration = errors.New("configuration error")

	// ErrDomain 物性在有效范围之外求值
	ErrDomain = errors.New("domain error")

	// ErrNotImplemented 启用了尚未实现的能量项
	ErrNotImplemented = errors.New("not implemented")
)
