package deque

import (
	"spider/model"
)

// 数组大小基数
const base = 8

// ArrDeque 环形数组实现的双端队列
type ArrDeque struct {
	arr []model.Frame
	// 头部元素的下标
	start int
	// 元素个数
	size int
	// 容量
	capacity int
}

var _ Deque = (*ArrDeque)(nil)

// 工厂方法, 容量向上取整到 base 的倍数
func NewArrDeque(capacity int) *ArrDeque {
	if capacity <= 0 {
		capacity = base
	}
	remainder := capacity % base
	if remainder != 0 {
		capacity = capacity - remainder + base
	}
	return &ArrDeque{
		arr:      make([]model.Frame, capacity),
		capacity: capacity,
	}
}

func (ad *ArrDeque) index(i int) int {
	return (ad.start + i) % ad.capacity
}

func (ad *ArrDeque) Size() int {
	return ad.size
}

func (ad *ArrDeque) Capacity() int {
	return ad.capacity
}

func (ad *ArrDeque) Get(i int) model.Frame {
	if i < 0 || i >= ad.size {
		panic("index out of length")
	}
	return ad.arr[ad.index(i)]
}

func (ad *ArrDeque) Traverse(f func(i int, item *model.Frame)) {
	for i := 0; i < ad.size; i++ {
		f(i, &ad.arr[ad.index(i)])
	}
}

func (ad *ArrDeque) AddLast(item model.Frame) bool {
	if ad.IsFull() {
		return false
	}
	ad.arr[ad.index(ad.size)] = item
	ad.size++
	return true
}

func (ad *ArrDeque) RemoveLast() (model.Frame, bool) {
	if ad.IsEmpty() {
		return model.Frame{}, false
	}
	ad.size--
	i := ad.index(ad.size)
	item := ad.arr[i]
	ad.arr[i] = model.Frame{} // 释放剖面切片
	return item, true
}

func (ad *ArrDeque) AddFirst(item model.Frame) bool {
	if ad.IsFull() {
		return false
	}
	ad.start = (ad.start - 1 + ad.capacity) % ad.capacity
	ad.arr[ad.start] = item
	ad.size++
	return true
}

func (ad *ArrDeque) RemoveFirst() (model.Frame, bool) {
	if ad.IsEmpty() {
		return model.Frame{}, false
	}
	item := ad.arr[ad.start]
	ad.arr[ad.start] = model.Frame{}
	ad.start = (ad.start + 1) % ad.capacity
	ad.size--
	return item, true
}

// PushLast 在结尾增加一个元素, 队列满时先丢弃头部最旧的元素
func (ad *ArrDeque) PushLast(item model.Frame) {
	if ad.IsFull() {
		ad.RemoveFirst()
	}
	ad.AddLast(item)
}

// Slice 按顺序复制出全部元素
func (ad *ArrDeque) Slice() []model.Frame {
	out := make([]model.Frame, 0, ad.size)
	ad.Traverse(func(i int, item *model.Frame) {
		out = append(out, *item)
	})
	return out
}

func (ad *ArrDeque) IsFull() bool {
	return ad.size == ad.capacity
}

func (ad *ArrDeque) IsEmpty() bool {
	return ad.size == 0
}
