package registry

const (
	protocolERC20       = "ERC20"
	protocolUniswapV2   = "Uniswap V2"
	protocolUniswapV3   = "Uniswap V3"
	protocolUniversal   = "Uniswap Universal Router"
	protocolCurve       = "Curve"
	protocolAaveV2      = "Aave V2"
	protocolAaveV3      = "Aave V3"
	protocolCompoundV2  = "Compound V2"
	protocolBalancer    = "Balancer"
	protocol1inch       = "1inch"
	protocolWETH        = "WETH"
	protocolMulticall   = "Multicall"
	balancerSingleSwap  = "(bytes32,uint8,address,address,uint256,bytes)"
	balancerFundManager = "(address,bool,address,bool)"
)

var knownSelectors = map[string]Entry{
	// ERC20
	"0xa9059cbb": {protocolERC20, ActionTransfer, "transfer(address,uint256)"},
	"0x23b872dd": {protocolERC20, ActionTransferFrom, "transferFrom(address,address,uint256)"},
	"0x095ea7b3": {protocolERC20, ActionApprove, "approve(address,uint256)"},
	"0x70a08231": {protocolERC20, ActionBalanceOf, "balanceOf(address)"},

	// Uniswap V2 router
	"0x38ed1739": {protocolUniswapV2, ActionSwap, "swapExactTokensForTokens(uint256,uint256,address[],address,uint256)"},
	"0x8803dbee": {protocolUniswapV2, ActionSwap, "swapTokensForExactTokens(uint256,uint256,address[],address,uint256)"},
	"0x7ff36ab5": {protocolUniswapV2, ActionSwap, "swapExactETHForTokens(uint256,address[],address,uint256)"},
	"0x18cbafe5": {protocolUniswapV2, ActionSwap, "swapExactTokensForETH(uint256,uint256,address[],address,uint256)"},
	"0xfb3bdb41": {protocolUniswapV2, ActionSwap, "swapETHForExactTokens(uint256,address[],address,uint256)"},
	"0x4a25d94a": {protocolUniswapV2, ActionSwap, "swapTokensForExactETH(uint256,uint256,address[],address,uint256)"},
	"0xe8e33700": {protocolUniswapV2, ActionAddLiquidity, "addLiquidity(address,address,uint256,uint256,uint256,uint256,address,uint256)"},
	"0xbaa2abde": {protocolUniswapV2, ActionRemoveLiquidity, "removeLiquidity(address,address,uint256,uint256,uint256,address,uint256)"},

	// Uniswap V3 router
	"0x414bf389": {protocolUniswapV3, ActionSwap, "exactInputSingle((address,address,uint24,address,uint256,uint256,uint256,uint160))"},
	"0xdb3e2198": {protocolUniswapV3, ActionSwap, "exactOutputSingle((address,address,uint24,address,uint256,uint256,uint256,uint160))"},
	"0xc04b8d59": {protocolUniswapV3, ActionSwap, "exactInput((bytes,address,uint256,uint256,uint256))"},
	"0xf28c0498": {protocolUniswapV3, ActionSwap, "exactOutput((bytes,address,uint256,uint256,uint256))"},
	"0xac9650d8": {protocolUniswapV3, ActionMulticall, "multicall(bytes[])"},
	"0x5ae401dc": {protocolUniswapV3, ActionMulticall, "multicall(uint256,bytes[])"},

	"0x3593564c": {protocolUniversal, ActionExecute, "execute(bytes,bytes[],uint256)"},

	// Curve
	"0x3df02124": {protocolCurve, ActionSwap, "exchange(int128,int128,uint256,uint256)"},
	"0xa6417ed6": {protocolCurve, ActionSwap, "exchange_underlying(int128,int128,uint256,uint256)"},
	"0x0b4c7e4d": {protocolCurve, ActionAddLiquidity, "add_liquidity(uint256[2],uint256)"},
	"0x4515cef3": {protocolCurve, ActionAddLiquidity, "add_liquidity(uint256[3],uint256)"},
	"0x5b41b908": {protocolCurve, ActionRemoveLiquidity, "remove_liquidity_one_coin(uint256,int128,uint256)"},

	// Aave V2
	"0xab9c4b5d": {protocolAaveV2, ActionFlashloan, "flashLoan(address,address[],uint256[],uint256[],address,bytes,uint16)"},
	"0xe8eda9df": {protocolAaveV2, ActionDeposit, "deposit(address,uint256,address,uint16)"},
	"0x69328dec": {protocolAaveV2, ActionWithdraw, "withdraw(address,uint256,address)"},
	"0xa415bcad": {protocolAaveV2, ActionBorrow, "borrow(address,uint256,uint256,uint16,address)"},
	"0x573ade81": {protocolAaveV2, ActionRepay, "repay(address,uint256,uint256,address)"},
	"0xdfd5281b": {protocolAaveV2, ActionLiquidation, "liquidationCall(address,address,address,uint256,bool)"},

	// Aave V3
	"0x617ba037": {protocolAaveV3, ActionSupply, "supply(address,uint256,address,uint16)"},
	"0x2dad97d4": {protocolAaveV3, ActionFlashloan, "flashLoanSimple(address,address,uint256,bytes,uint16)"},

	// Compound V2 cTokens
	"0xa0712d68": {protocolCompoundV2, ActionMint, "mint(uint256)"},
	"0xdb006a75": {protocolCompoundV2, ActionRedeem, "redeem(uint256)"},
	"0x852a12e3": {protocolCompoundV2, ActionRedeemUnderlying, "redeemUnderlying(uint256)"},
	"0xf5e3c462": {protocolCompoundV2, ActionLiquidate, "liquidateBorrow(address,uint256,address)"},

	// Balancer vault
	"0x52bbbe29": {protocolBalancer, ActionSwap, "swap(" + balancerSingleSwap + "," + balancerFundManager + ",uint256,uint256)"},
	"0x945bcec9": {protocolBalancer, ActionBatchSwap, "batchSwap(uint8,(bytes32,uint256,uint256,uint256,bytes)[],address[]," + balancerFundManager + ",int256[],uint256)"},
	"0xb95cac28": {protocolBalancer, ActionFlashloan, "flashLoan(address,address[],uint256[],bytes)"},

	// 1inch aggregation router
	"0x7c025200": {protocol1inch, ActionSwap, "swap(address,(address,address,address,address,uint256,uint256,uint256,bytes),bytes)"},
	"0xe449022e": {protocol1inch, ActionSwap, "uniswapV3Swap(uint256,uint256,uint256[])"},
	"0x12aa3caf": {protocol1inch, ActionSwap, "swapExactInputSingle(uint256,(uint256,uint256,uint256,bytes32,address,address,address,bytes))"},

	// WETH
	"0xd0e30db0": {protocolWETH, ActionDeposit, "deposit()"},
	"0x2e1a7d4d": {protocolWETH, ActionWithdraw, "withdraw(uint256)"},

	// Multicall
	"0x252dba42": {protocolMulticall, ActionMulticall, "aggregate((address,bytes)[])"},
	"0x82ad56cb": {protocolMulticall, ActionMulticall, "tryAggregate(bool,(address,bytes)[])"},
}

var knownBridges = map[string]string{
	"0x3154cf16ccdb4c6d922629664174b904d80f2c35": "Base Bridge",
	"0x99c9fc46f92e8a1c0dec1b1747d010903e884be1": "Optimism Bridge",
	"0x4dbd4fc535ac27206064b68ffcf827b0a60bab3f": "Arbitrum Bridge",
	"0xa0c68c638235ee32657e8f720a23cec1bfc77c77": "Polygon Bridge",
	"0xd3a691c852cdb01e281545a27064741f0b7f6825": "Stargate",
}
