// counter 可证明计数器合约的命令行客户端
//
// 使用方式:
//
//	counter register-contract            # 可信设置(首次)并注册合约
//	counter increment --username alice   # 递增 alice 的计数并提交证明
//	counter state                        # 查询账本上的合约状态
//	counter watch                        # 订阅节点事件
package main

func main() {
	Execute()
}
