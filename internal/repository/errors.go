package repository

import "errors"

var (
	// ErrNotFound 表示查询未返回数据。
	ErrNotFound = errors.New("not found / 未找到数据")
	// ErrConflict 表示唯一约束冲突。
	ErrConflict = errors.New("conflict / 数据已存在")
	// ErrInsufficientStock 表示条件扣减库存失败。
	ErrInsufficientStock = errors.New("insufficient stock / 库存不足")
)
