package domain

import "errors"

var (
	ErrAlreadyInitialized    = errors.New("sale already initialized")
	ErrUnknownRound          = errors.New("unknown round")
	ErrBuyNotAllowed         = errors.New("buy not allowed")
	ErrRoundNotClosable      = errors.New("round can not be closed yet")
	ErrSaleNotEnded          = errors.New("crowdsale is not ended")
	ErrSaleNotActive         = errors.New("crowdsale is not active")
	ErrTransferLocked        = errors.New("cannot transfer before sale ends")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrNotIssuer             = errors.New("caller is not the issuer")
	ErrWhitelistClosed       = errors.New("whitelist is closed")
	ErrRoundCapExceeded      = errors.New("round cap exceeded")
	ErrAlreadySwept          = errors.New("treasury already swept")
	ErrInvalidPrice          = errors.New("invalid price")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidAddress        = errors.New("invalid address")
	ErrInvalidRoot           = errors.New("invalid merkle root")
	ErrSaleNotFound          = errors.New("sale not found")
	ErrProceedsNotBacked     = errors.New("sale proceeds not backed by quote ledger")
)
