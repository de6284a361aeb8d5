// Package collab 定义提取流水线下游协作方的契约
//
// 分类器给选中的商品图片打上服装类别,合成器把多张图片按指令合成一张。
// 两者都由外部服务实现,这里只约定输入输出和降级行为。
package collab
