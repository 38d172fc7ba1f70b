// Package deque 保存计算过程中最近的温度剖面帧.
// 用数组实现双端队列, 帧按时间顺序排列, 队列满时由调用方决定丢弃哪一端
package deque

import "spider/model"

type Deque interface {
	// 队列的长度
	Size() int

	// 获取队列中对应下标的帧
	Get(i int) model.Frame

	// 正向遍历
	Traverse(f func(i int, item *model.Frame))

	// 在队列结尾增加一个元素, 队列满时返回 false
	AddLast(item model.Frame) bool

	// 在队列结尾删除一个元素
	RemoveLast() (model.Frame, bool)

	// 在队列头部增加一个元素, 队列满时返回 false
	AddFirst(item model.Frame) bool

	// 在队列头部删除一个元素
	RemoveFirst() (model.Frame, bool)

	IsFull() bool

	IsEmpty() bool
}
