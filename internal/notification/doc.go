// Package notification сообщает о завершённом анализе.
//
// EmailDispatcher отправляет HTML-письмо через HTTP email-сервис с токеном
// OAuth2 client credentials. AMQPDispatcher публикует analysis.complete
// в RabbitMQ. MultiDispatcher рассылает в оба.
//
// Ошибки уведомлений не фатальны: оркестратор логирует их и продолжает.
package notification
