// Package contracts holds the ABI of the deployed NFTAirdropTracker contract.
package contracts

// AirdropTrackerABI is the ABI fragment covering every method the service
// calls. Regenerate from NFTAirdropTracker.json when the contract changes.
const AirdropTrackerABI = `[
  {
    "type": "function",
    "name": "doesProjectExist",
    "stateMutability": "view",
    "inputs": [{"name": "projectId", "type": "string"}],
    "outputs": [{"name": "", "type": "bool"}]
  },
  {
    "type": "function",
    "name": "createProject",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "projectId", "type": "string"},
      {"name": "nftContractAddress", "type": "address"},
      {"name": "tokenId", "type": "uint256"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "recordClaim",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "projectId", "type": "string"},
      {"name": "userId", "type": "string"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "recordWalletAddress",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "userId", "type": "string"},
      {"name": "walletAddress", "type": "address"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "checkProjectAuthorization",
    "stateMutability": "view",
    "inputs": [
      {"name": "projectId", "type": "string"},
      {"name": "caller", "type": "address"}
    ],
    "outputs": [{"name": "", "type": "bool"}]
  },
  {
    "type": "function",
    "name": "getNFTInfo",
    "stateMutability": "view",
    "inputs": [{"name": "projectId", "type": "string"}],
    "outputs": [
      {"name": "nftContractAddress", "type": "address"},
      {"name": "tokenId", "type": "uint256"}
    ]
  },
  {
    "type": "function",
    "name": "updateEligibleUsersForAirdrop",
    "stateMutability": "nonpayable",
    "inputs": [{"name": "projectId", "type": "string"}],
    "outputs": []
  },
  {
    "type": "function",
    "name": "getEligibleUsersForAirdrop",
    "stateMutability": "view",
    "inputs": [{"name": "projectId", "type": "string"}],
    "outputs": [{"name": "", "type": "string[]"}]
  },
  {
    "type": "function",
    "name": "getClaimState",
    "stateMutability": "view",
    "inputs": [
      {"name": "projectId", "type": "string"},
      {"name": "userId", "type": "string"}
    ],
    "outputs": [{"name": "", "type": "uint8"}]
  }
]`
