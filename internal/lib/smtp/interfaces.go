// Package smtp открывает авторизованные сессии с почтовым сервером.
package smtp

import "io"

// Client шаги одной SMTP-сессии, которые нужны для отправки письма.
// *smtp.Client из стандартной библиотеки удовлетворяет ему без обёртки.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface выдаёт готовую к отправке сессию и адрес отправителя.
type TransportInterface interface {
	Connect() (Client, error)
	GetSMTPUser() string
}
