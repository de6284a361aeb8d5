// Package crawlers 提供静态和动态两种商品图片提取策略,以及单张图片抓取
//
// # 概述
//
// 提取按阶段进行:静态阶段(Colly + goquery)只读取原始HTML,
// 候选不足或页面疑似客户端渲染时,编排器再调用动态阶段(go-rod)渲染页面。
// 两个阶段共享同一个 models.ImageSet,所有原始匹配都经过 imgurl.Pipeline
// (规范化 -> 过滤 -> 分辨率升级 -> 去重插入)。
//
// # 核心组件
//
// ## StaticExtractor
//
// 每次提取创建一次性的Colly collector,解压响应(gzip/deflate/br)后按优先级扫描:
//   - og:image / twitter:image meta标签
//   - JSON-LD结构化数据(Product、ItemList、@graph)
//   - 懒加载属性(data-src等)
//   - <img src>
//   - srcset / data-srcset 的最后一项
//   - 内联脚本中的图片URL(需包含商品路径特征)
//
// 单个信号源panic只会跳过该信号源。同时通过 DetectClientRendered
// 给出客户端渲染提示。
//
//	se := NewStaticExtractor(fetchConfig, headerProvider)
//	result, err := se.Extract(ctx, page, set)
//
// ## DynamicExtractor
//
// 每次提取启动独立的Chromium进程,会话在所有退出路径上关闭(包括panic)。
// 启动前经过可选的会话信号量和 ResourceMonitor 资源检查。
// 渲染后读取og图片和全部img的渲染面积,按面积从大到小排序。
//
//	de := NewDynamicExtractor(browserConfig, headerProvider, monitor)
//	result, err := de.Extract(ctx, page, set)
//
// ## ResourceMonitor (资源监控器)
//
// 基于gopsutil检查系统可用内存和CPU负载,结果缓存1秒:
//   - 可用内存(扣除保留) < 单个浏览器内存: 拒绝启动
//   - CPU使用率 > 阈值: 拒绝启动 (阈值>=200视为禁用)
//
// ## ImageFetcher
//
// 对调用方选中的单个候选发起一次GET,携带桌面UA、图片Accept和Referer。
// 失败统一返回 *FetchError,区分"无法访问"与"不是图片"。
//
// # 错误处理
//
//   - 页面请求失败或非2xx: 阶段返回错误,编排器记录后按空结果处理
//   - JSON-LD块解析失败: 只跳过该块
//   - 渲染后端不可用: 返回 ErrBrowserUnavailable,编排器降级
//   - 浏览器panic: 转换为 ErrBrowserCrashed
package crawlers
